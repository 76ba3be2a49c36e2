package fetch

import (
	"net/http"
	"os"
)

// fetchLocal reads a bare path reference, subject to the scope rule: the
// resolved path must fall under opts.BasePath and contain no traversal
// (spec §4.1).
func (f *Fetcher) fetchLocal(ref string, opts Options) ([]byte, http.Header, error) {
	path := ref
	if opts.BasePath != "" {
		scoped, err := joinScoped(opts.BasePath, ref)
		if err != nil {
			return nil, nil, err
		}
		path = scoped
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return b, http.Header{}, nil
}
