package reqerr

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nodeconv/subconverter/authn"
	"github.com/nodeconv/subconverter/cmn"
)

func TestWriteSetsStatusAndBody(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, Invalid("bad target"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if w.Body.String() != "bad target" {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestWriteRecoverableKindFallsBackToInternal(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, New(cmn.KindFetchFailure, "upstream timed out"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestWriteTokenNoConfiguredTokenAlwaysPasses(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/readconf", nil)
	if !WriteToken(w, r, "") {
		t.Fatal("expected WriteToken to pass when no token is configured")
	}
	if w.Code != 200 {
		t.Fatalf("unexpected write: status %d", w.Code)
	}
}

func TestWriteTokenQueryMatch(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/readconf?token=secret", nil)
	if !WriteToken(w, r, "secret") {
		t.Fatal("expected query token match to pass")
	}
}

func TestWriteTokenBearerJWT(t *testing.T) {
	tok, err := authn.IssueToken("secret", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/readconf", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	if !WriteToken(w, r, "secret") {
		t.Fatal("expected bearer token to pass")
	}
}

func TestWriteTokenRejectsWrongToken(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/readconf?token=wrong", nil)
	if WriteToken(w, r, "secret") {
		t.Fatal("expected wrong token to fail")
	}
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}
