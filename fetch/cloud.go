package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// s3Source, azblobSource, and gsSource let base configs and rulesets live
// in object storage, generalizing the teacher's per-cloud backend.Provider
// split (ais/backend/*.go, one file per cloud) into three more fetch.Source
// implementations registered the same way the HTTP source is.

type s3Source struct{ sess *session.Session }

func NewS3Source() (Source, error) {
	sess, err := session.NewSession(aws.NewConfig())
	if err != nil {
		return nil, err
	}
	return &s3Source{sess: sess}, nil
}

func (s *s3Source) Scheme() string { return "s3" }

func (s *s3Source) Fetch(ctx context.Context, ref string, _ Options) ([]byte, http.Header, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, nil, err
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	out, err := s3.New(s.sess).GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: s3 GetObject %s: %w", ref, err)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	return body, http.Header{}, err
}

type azblobSource struct{}

func NewAzblobSource() Source { return azblobSource{} }

func (azblobSource) Scheme() string { return "azblob" }

func (azblobSource) Fetch(ctx context.Context, ref string, _ Options) ([]byte, http.Header, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, nil, err
	}
	blobURL := "https://" + u.Host + u.Path
	parsed, err := url.Parse(blobURL)
	if err != nil {
		return nil, nil, err
	}
	cred := azblob.NewAnonymousCredential()
	pipeline := azblob.NewPipeline(cred, azblob.PipelineOptions{})
	bu := azblob.NewBlobURL(*parsed, pipeline)
	resp, err := bu.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: azblob download %s: %w", ref, err)
	}
	body := resp.Body(azblob.RetryReaderOptions{})
	defer body.Close()
	data, err := io.ReadAll(body)
	return data, http.Header{}, err
}

type gsSource struct{ client *storage.Client }

func NewGSSource(ctx context.Context) (Source, error) {
	cl, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &gsSource{client: cl}, nil
}

func (g *gsSource) Scheme() string { return "gs" }

func (g *gsSource) Fetch(ctx context.Context, ref string, _ Options) ([]byte, http.Header, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, nil, err
	}
	bucket, obj := u.Host, strings.TrimPrefix(u.Path, "/")
	r, err := g.client.Bucket(bucket).Object(obj).NewReader(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: gs read %s: %w", ref, err)
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	return body, http.Header{}, err
}
