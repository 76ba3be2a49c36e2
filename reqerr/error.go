// Package reqerr maps the error taxonomy (spec §7) onto HTTP responses,
// the single place the server layer decides status/body for a surfaced
// error instead of each handler improvising its own.
package reqerr

import (
	"net/http"
	"strings"

	"github.com/nodeconv/subconverter/authn"
	"github.com/nodeconv/subconverter/cmn"
)

// Error pairs a Kind with the text the client sees; non-recoverable kinds
// are written verbatim as the response body (spec §7 "respond N with text").
type Error struct {
	Kind cmn.Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func New(kind cmn.Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Invalid(msg string) *Error       { return New(cmn.KindInputInvalid, msg) }
func Unauthorized(msg string) *Error  { return New(cmn.KindUnauthorized, msg) }
func Template(msg string) *Error      { return New(cmn.KindTemplateError, msg) }
func Internal(msg string) *Error      { return New(cmn.KindInternal, msg) }

// Write sends err's status/body to w. Recoverable kinds have no HTTP
// surface by definition (the request degrades instead of erroring), so
// Write treats them as KindInternal rather than silently succeeding.
func Write(w http.ResponseWriter, err *Error) {
	status := err.Kind.HTTPStatus()
	if status == 200 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(err.Msg))
}

// WriteToken authorizes a management request two ways: a literal `token=`
// query match against configured (the plain form spec §6.1 describes), or
// an `Authorization: Bearer <jwt>` header signed with configured as the
// HMAC secret (authn.IssueToken's counterpart). Writes a 403 and returns
// false when neither checks out; callers of a token-gated endpoint open
// with `if !reqerr.WriteToken(...) { return }`.
func WriteToken(w http.ResponseWriter, r *http.Request, configured string) bool {
	if configured == "" {
		return true
	}
	if r.URL.Query().Get("token") == configured {
		return true
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if authn.VerifyToken(bearer, configured) == nil {
			return true
		}
	}
	Write(w, Unauthorized("Unauthorized"))
	return false
}
