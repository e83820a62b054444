package grounding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"
)

// fakeGitHub serves both the raw-content host and the API host from one
// httptest server; handlers decide per path what exists.
func fakeGitHub(t *testing.T, handler http.HandlerFunc) (*Retriever, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	r := NewRetriever(RetrieverConfig{
		APIBase: srv.URL,
		RawBase: srv.URL,
		Client:  srv.Client(),
	})
	return r, srv
}

func TestParseRepoURL(t *testing.T) {
	cases := []struct {
		in          string
		owner, repo string
		wantErr     bool
	}{
		{"https://github.com/acme/widget", "acme", "widget", false},
		{"https://github.com/acme/widget.git", "acme", "widget", false},
		{"github.com/acme/widget/", "acme", "widget", false},
		{"acme/widget", "acme", "widget", false},
		{"not a url", "", "", true},
	}
	for _, tc := range cases {
		owner, repo, err := ParseRepoURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseRepoURL(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRepoURL(%q): %v", tc.in, err)
			continue
		}
		if owner != tc.owner || repo != tc.repo {
			t.Errorf("ParseRepoURL(%q) = %s/%s, want %s/%s", tc.in, owner, repo, tc.owner, tc.repo)
		}
	}
}

func TestReadmeShortCircuits(t *testing.T) {
	var apiCalls int32
	r, _ := fakeGitHub(t, func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/repos/") {
			atomic.AddInt32(&apiCalls, 1)
			http.NotFound(w, req)
			return
		}
		if req.URL.Path == "/acme/widget/main/README.md" {
			_, _ = w.Write([]byte("# Widget\n\nA tool for widgets."))
			return
		}
		http.NotFound(w, req)
	})

	docs, status, err := r.Retrieve(context.Background(), "https://github.com/acme/widget")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !status.ReadmeFound {
		t.Error("ReadmeFound should be true")
	}
	if !reflect.DeepEqual(status.SourcesUsed, []string{"readme"}) {
		t.Errorf("SourcesUsed = %v, want [readme] only", status.SourcesUsed)
	}
	if status.DataCompleteness != "high" {
		t.Errorf("completeness = %q, want high", status.DataCompleteness)
	}
	if got := atomic.LoadInt32(&apiCalls); got != 0 {
		t.Errorf("API levels were attempted %d times despite README hit", got)
	}
	if len(docs) != 1 || docs[0].Kind != SourceReadme {
		t.Errorf("docs = %+v, want single readme document", docs)
	}
	if docs[0].Branch != "main" || docs[0].File != "README.md" {
		t.Errorf("doc branch/file = %s/%s", docs[0].Branch, docs[0].File)
	}
}

func TestReadmeFallbackBranches(t *testing.T) {
	r, _ := fakeGitHub(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/acme/widget/develop/README.md" {
			_, _ = w.Write([]byte("readme on develop"))
			return
		}
		http.NotFound(w, req)
	})

	docs, _, err := r.Retrieve(context.Background(), "acme/widget")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if docs[0].Branch != "develop" {
		t.Errorf("branch = %q, want develop", docs[0].Branch)
	}
}

func TestAllSourcesFailIsTerminal(t *testing.T) {
	r, _ := fakeGitHub(t, func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	})

	_, _, err := r.Retrieve(context.Background(), "acme/ghost")
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestCompletenessTiers(t *testing.T) {
	// Each serve set enables specific fallback levels; readme always 404s.
	cases := []struct {
		name      string
		metadata  bool
		structure bool
		deps      bool
		commits   bool
		issues    bool
		wantTier  string
		wantCount int
	}{
		{"three of six is medium", true, true, true, false, false, "medium", 3},
		{"five of six is high", true, true, true, true, true, "high", 5},
		{"two of six is low", true, false, true, false, false, "low", 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := fakeGitHub(t, func(w http.ResponseWriter, req *http.Request) {
				switch {
				case req.URL.Path == "/repos/acme/widget" && tc.metadata:
					_, _ = w.Write([]byte(`{"full_name":"acme/widget","language":"Go","stargazers_count":12}`))
				case req.URL.Path == "/repos/acme/widget/contents" && tc.structure:
					_, _ = w.Write([]byte(`[{"name":"main.go","path":"main.go","type":"file"}]`))
				case req.URL.Path == "/acme/widget/main/requirements.txt" && tc.deps:
					_, _ = w.Write([]byte("requests==2.31.0"))
				case req.URL.Path == "/repos/acme/widget/commits" && tc.commits:
					_, _ = w.Write([]byte(`[{"commit":{"message":"fix parser","author":{"date":"2026-08-01T00:00:00Z"}}}]`))
				case req.URL.Path == "/repos/acme/widget/issues" && tc.issues:
					_, _ = w.Write([]byte(`[{"title":"Crash on empty input","body":"Steps to reproduce"}]`))
				default:
					http.NotFound(w, req)
				}
			})

			docs, status, err := r.Retrieve(context.Background(), "acme/widget")
			if err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if status.DataCompleteness != tc.wantTier {
				t.Errorf("completeness = %q, want %q", status.DataCompleteness, tc.wantTier)
			}
			if status.SourceCount != tc.wantCount {
				t.Errorf("source count = %d, want %d", status.SourceCount, tc.wantCount)
			}
			if len(docs) != tc.wantCount {
				t.Errorf("len(docs) = %d, want %d", len(docs), tc.wantCount)
			}
			if status.ReadmeFound {
				t.Error("ReadmeFound should be false on the fallback path")
			}
		})
	}
}

func TestLevelFailureDoesNotBlockLaterLevels(t *testing.T) {
	// Only commits succeed; everything before and after them 404s.
	r, _ := fakeGitHub(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/repos/acme/widget/commits" {
			_, _ = w.Write([]byte(`[{"commit":{"message":"initial import\n\nlong body","author":{"date":"2026-07-15T10:00:00Z"}}}]`))
			return
		}
		http.NotFound(w, req)
	})

	docs, status, err := r.Retrieve(context.Background(), "acme/widget")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !reflect.DeepEqual(status.SourcesUsed, []string{"commits"}) {
		t.Errorf("SourcesUsed = %v", status.SourcesUsed)
	}
	if status.DataCompleteness != "low" {
		t.Errorf("completeness = %q, want low", status.DataCompleteness)
	}
	if !strings.Contains(docs[0].Content, "initial import") {
		t.Errorf("commit content = %q", docs[0].Content)
	}
	if strings.Contains(docs[0].Content, "long body") {
		t.Error("only the first line of a commit message should be kept")
	}
}

func TestRequirementsTriesMasterBranch(t *testing.T) {
	r, _ := fakeGitHub(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/acme/widget/master/package.json" {
			_, _ = w.Write([]byte(`{"dependencies":{"react":"^18.0.0"}}`))
			return
		}
		http.NotFound(w, req)
	})

	docs, status, err := r.Retrieve(context.Background(), "acme/widget")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !reflect.DeepEqual(status.SourcesUsed, []string{"requirements"}) {
		t.Errorf("SourcesUsed = %v", status.SourcesUsed)
	}
	if docs[0].File != "package.json" || docs[0].Branch != "master" {
		t.Errorf("doc = %s on %s", docs[0].File, docs[0].Branch)
	}
}

func TestTransparencyMessage(t *testing.T) {
	msg := TransparencyMessage(RetrievalStatus{ReadmeFound: true})
	if !strings.Contains(msg, "README") {
		t.Errorf("readme message = %q", msg)
	}

	msg = TransparencyMessage(RetrievalStatus{
		SourcesUsed:      []string{"metadata", "commits"},
		DataCompleteness: "low",
	})
	if !strings.Contains(msg, "metadata, commits") {
		t.Errorf("low-tier message should name sources: %q", msg)
	}
}

func TestAuthTokenHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		_, _ = w.Write([]byte("# Readme"))
	}))
	defer srv.Close()

	r := NewRetriever(RetrieverConfig{
		Token:   "ghp_test",
		APIBase: srv.URL,
		RawBase: srv.URL,
		Client:  srv.Client(),
	})
	if _, _, err := r.Retrieve(context.Background(), "acme/widget"); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if gotAuth != "token ghp_test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestServerErrorsAreNotRetried(t *testing.T) {
	var readmeHits int32
	r, _ := fakeGitHub(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/acme/widget/main/README.md" {
			atomic.AddInt32(&readmeHits, 1)
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, _, err := r.Retrieve(context.Background(), "acme/widget"); err == nil {
		t.Fatal("expected insufficient data error when every source fails")
	}
	if hits := atomic.LoadInt32(&readmeHits); hits != 1 {
		t.Errorf("expected a single attempt per source, got %d", hits)
	}
}

func TestIssuePreviewKeepsRunesWhole(t *testing.T) {
	longBody := strings.Repeat("é", 260)
	r, _ := fakeGitHub(t, func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/repos/acme/widget/issues") {
			payload, _ := json.Marshal([]issueEntry{{Title: "Crash on résumé upload", Body: longBody}})
			_, _ = w.Write(payload)
			return
		}
		http.NotFound(w, req)
	})

	docs, _, err := r.Retrieve(context.Background(), "acme/widget")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !utf8.ValidString(docs[0].Content) {
		t.Error("issue preview split a multi-byte rune")
	}
	// 200-rune preview plus the two accented runes in the title.
	if strings.Count(docs[0].Content, "é") != 202 {
		t.Errorf("unexpected preview length in %q", docs[0].Content)
	}
}
