// Package grounding retrieves repository context for content generation.
// When a README is unavailable it degrades through a fixed hierarchy of
// repository-intelligence sources instead of generating ungrounded text.
package grounding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/draftdeck/scrivener/pkg/clients"
	"github.com/draftdeck/scrivener/pkg/logging"
)

const (
	defaultAPIBase = "https://api.github.com"
	defaultRawBase = "https://raw.githubusercontent.com"

	maxTreeDepth     = 3
	maxTreeEntries   = 20
	commitLimit      = 10
	issueLimit       = 5
	maxBodyBytes     = 4 << 20
	requestTimeout   = 10 * time.Second
	issueBodyPreview = 200
)

// Source kinds, in fallback order.
const (
	SourceReadme        = "readme"
	SourceMetadata      = "metadata"
	SourceFileStructure = "file_structure"
	SourceRequirements  = "requirements"
	SourceCommits       = "commits"
	SourceIssues        = "issues"
)

var sourceKinds = []string{
	SourceReadme, SourceMetadata, SourceFileStructure,
	SourceRequirements, SourceCommits, SourceIssues,
}

// ErrInsufficientData means every grounding source failed; generation must
// refuse rather than proceed with zero grounding.
var ErrInsufficientData = errors.New("no grounding data available for repository")

// Document is one retrieved piece of grounding context.
type Document struct {
	Source     string // github://owner/repo
	Kind       string // one of the source kind constants
	File       string
	Branch     string
	Content    string
	Confidence string // high / medium / low
}

// RetrievalStatus reports which sources contributed and how complete the
// grounding data is.
type RetrievalStatus struct {
	Repo             string
	ReadmeFound      bool
	SourcesUsed      []string
	SourceCount      int
	DataCompleteness string // high / medium / low
}

type RetrieverConfig struct {
	Token   string // optional GitHub token
	APIBase string
	RawBase string
	Client  *http.Client
	Logger  logging.Logger
}

// Retriever fetches grounding documents for a GitHub repository.
type Retriever struct {
	token    string
	apiBase  string
	rawBase  string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
	logger   logging.Logger
}

func NewRetriever(cfg RetrieverConfig) *Retriever {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	rawBase := cfg.RawBase
	if rawBase == "" {
		rawBase = defaultRawBase
	}
	client := cfg.Client
	if client == nil {
		client = clients.NewHTTPClient(requestTimeout)
	}
	// Single attempt per level: a failed fetch is an unavailable source,
	// never a retry. Server-error responses flow back so the status check
	// below can report them and close the body.
	execCfg := clients.DefaultHTTPExecutorConfig()
	execCfg.ShouldRetry = func(resp *http.Response, err error) bool {
		return err != nil
	}
	return &Retriever{
		token:    cfg.Token,
		apiBase:  strings.TrimRight(apiBase, "/"),
		rawBase:  strings.TrimRight(rawBase, "/"),
		client:   client,
		executor: clients.NewHTTPExecutor(execCfg),
		logger:   cfg.Logger,
	}
}

var repoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?$`),
	regexp.MustCompile(`^([^/]+)/([^/]+)$`),
}

// ParseRepoURL extracts owner and repo from a GitHub URL or "owner/repo".
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	trimmed := strings.TrimRight(strings.TrimSpace(repoURL), "/")
	for _, pattern := range repoURLPatterns {
		if m := pattern.FindStringSubmatch(trimmed); m != nil {
			return m[1], m[2], nil
		}
	}
	return "", "", fmt.Errorf("invalid github repository url %q", repoURL)
}

// Retrieve walks the fallback hierarchy. A README hit short-circuits all
// other sources. Levels 2-6 run independently; one failure never blocks the
// next. Zero documents at the end is the single terminal condition.
func (r *Retriever) Retrieve(ctx context.Context, repoURL string) ([]Document, RetrievalStatus, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, RetrievalStatus{}, err
	}
	status := RetrievalStatus{Repo: owner + "/" + repo}

	if doc, ok := r.tryReadme(ctx, owner, repo); ok {
		status.ReadmeFound = true
		status.SourcesUsed = []string{SourceReadme}
		status.SourceCount = 1
		status.DataCompleteness = "high"
		retrievalsTotal.WithLabelValues(status.DataCompleteness).Inc()
		retrievalSourcesTotal.WithLabelValues(SourceReadme).Inc()
		return []Document{doc}, status, nil
	}
	if r.logger != nil {
		r.logger.WithField("repo", status.Repo).Info("README unavailable, using repository intelligence sources")
	}

	available := map[string]bool{}
	var docs []Document
	levels := []struct {
		kind string
		load func(context.Context, string, string) (Document, bool)
	}{
		{SourceMetadata, r.loadMetadata},
		{SourceFileStructure, r.loadFileStructure},
		{SourceRequirements, r.loadRequirements},
		{SourceCommits, r.loadCommits},
		{SourceIssues, r.loadIssues},
	}
	for _, level := range levels {
		doc, ok := level.load(ctx, owner, repo)
		if !ok {
			continue
		}
		docs = append(docs, doc)
		available[level.kind] = true
	}

	if len(docs) == 0 {
		return nil, status, fmt.Errorf("repository %s/%s: %w", owner, repo, ErrInsufficientData)
	}

	for _, kind := range sourceKinds {
		if available[kind] {
			status.SourcesUsed = append(status.SourcesUsed, kind)
			retrievalSourcesTotal.WithLabelValues(kind).Inc()
		}
	}
	status.SourceCount = len(status.SourcesUsed)
	status.DataCompleteness = completenessTier(status.SourceCount, len(sourceKinds))
	retrievalsTotal.WithLabelValues(status.DataCompleteness).Inc()
	return docs, status, nil
}

// TransparencyMessage describes what grounding data backed a generation run.
func TransparencyMessage(status RetrievalStatus) string {
	if status.ReadmeFound {
		return "Post generated from README documentation"
	}
	sources := strings.Join(status.SourcesUsed, ", ")
	switch status.DataCompleteness {
	case "high":
		return fmt.Sprintf("Generated using repository intelligence (README unavailable). Sources: %s. Data quality: high.", sources)
	case "medium":
		return fmt.Sprintf("README unavailable, using available repository data. Sources: %s. Recommendation: add a README for better results.", sources)
	default:
		return fmt.Sprintf("Insufficient data available, generated with limited context. Sources: %s. Post may be generic.", sources)
	}
}

func completenessTier(active, total int) string {
	pct := float64(active) / float64(total) * 100
	switch {
	case pct >= 80:
		return "high"
	case pct >= 50:
		return "medium"
	default:
		return "low"
	}
}

var readmeNames = []string{"README.md", "README.MD", "README.txt", "readme.md"}
var readmeBranches = []string{"main", "master", "develop"}

func (r *Retriever) tryReadme(ctx context.Context, owner, repo string) (Document, bool) {
	for _, name := range readmeNames {
		for _, branch := range readmeBranches {
			url := fmt.Sprintf("%s/%s/%s/%s/%s", r.rawBase, owner, repo, branch, name)
			body, err := r.fetch(ctx, url)
			if err != nil {
				continue
			}
			if r.logger != nil {
				r.logger.WithFields(logging.Fields{"file": name, "branch": branch}).Info("Found README")
			}
			return Document{
				Source:     sourceFor(owner, repo),
				Kind:       SourceReadme,
				File:       name,
				Branch:     branch,
				Content:    string(body),
				Confidence: "high",
			}, true
		}
	}
	return Document{}, false
}

type repoMetadata struct {
	FullName        string   `json:"full_name"`
	HTMLURL         string   `json:"html_url"`
	Description     string   `json:"description"`
	Language        string   `json:"language"`
	StargazersCount int      `json:"stargazers_count"`
	ForksCount      int      `json:"forks_count"`
	OpenIssuesCount int      `json:"open_issues_count"`
	WatchersCount   int      `json:"watchers_count"`
	Topics          []string `json:"topics"`
	License         *struct {
		Name string `json:"name"`
	} `json:"license"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Private   bool   `json:"private"`
	Archived  bool   `json:"archived"`
}

func (r *Retriever) loadMetadata(ctx context.Context, owner, repo string) (Document, bool) {
	body, err := r.fetch(ctx, fmt.Sprintf("%s/repos/%s/%s", r.apiBase, owner, repo))
	if err != nil {
		r.warnLevel(SourceMetadata, err)
		return Document{}, false
	}
	var meta repoMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		r.warnLevel(SourceMetadata, err)
		return Document{}, false
	}

	license := "None"
	if meta.License != nil {
		license = meta.License.Name
	}
	topics := "N/A"
	if len(meta.Topics) > 0 {
		topics = strings.Join(meta.Topics, ", ")
	}
	content := fmt.Sprintf(`REPOSITORY METADATA

Repository: %s
URL: %s
Description: %s
Language: %s
Stars: %d  Forks: %d  Watchers: %d  Open issues: %d
Topics: %s
License: %s
Created: %.10s  Updated: %.10s
Archived: %t`,
		meta.FullName, meta.HTMLURL, meta.Description, meta.Language,
		meta.StargazersCount, meta.ForksCount, meta.WatchersCount, meta.OpenIssuesCount,
		topics, license, meta.CreatedAt, meta.UpdatedAt, meta.Archived)

	return Document{
		Source:     sourceFor(owner, repo),
		Kind:       SourceMetadata,
		Content:    content,
		Confidence: "high",
	}, true
}

type contentEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // file or dir
}

func (r *Retriever) loadFileStructure(ctx context.Context, owner, repo string) (Document, bool) {
	entries, err := r.listContents(ctx, owner, repo, "")
	if err != nil {
		r.warnLevel(SourceFileStructure, err)
		return Document{}, false
	}

	var tree strings.Builder
	r.buildTree(ctx, owner, repo, entries, 1, "", &tree)

	content := fmt.Sprintf(`REPOSITORY STRUCTURE

%s
Key files: %s
Organization: %s
Project type: %s`,
		tree.String(), identifyKeyFiles(entries), inferOrganization(entries), inferProjectType(entries))

	return Document{
		Source:     sourceFor(owner, repo),
		Kind:       SourceFileStructure,
		Content:    content,
		Confidence: "medium",
	}, true
}

func (r *Retriever) listContents(ctx context.Context, owner, repo, path string) ([]contentEntry, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents", r.apiBase, owner, repo)
	if path != "" {
		url += "/" + path
	}
	body, err := r.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	var entries []contentEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}
	// Directories first, then alphabetical, capped per level.
	sort.SliceStable(entries, func(i, j int) bool {
		if (entries[i].Type == "dir") != (entries[j].Type == "dir") {
			return entries[i].Type == "dir"
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > maxTreeEntries {
		entries = entries[:maxTreeEntries]
	}
	return entries, nil
}

func (r *Retriever) buildTree(ctx context.Context, owner, repo string, entries []contentEntry, depth int, prefix string, out *strings.Builder) {
	for _, entry := range entries {
		if entry.Type == "dir" {
			fmt.Fprintf(out, "%s%s/\n", prefix, entry.Name)
			if depth < maxTreeDepth {
				children, err := r.listContents(ctx, owner, repo, entry.Path)
				if err != nil {
					continue
				}
				r.buildTree(ctx, owner, repo, children, depth+1, prefix+"  ", out)
			}
		} else {
			fmt.Fprintf(out, "%s%s\n", prefix, entry.Name)
		}
	}
}

var keyFileNames = []string{
	"README.md", "setup.py", "package.json", "requirements.txt",
	"Dockerfile", "go.mod", "LICENSE", "CONTRIBUTING.md",
}

func identifyKeyFiles(entries []contentEntry) string {
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name] = true
	}
	var found []string
	for _, name := range keyFileNames {
		if names[name] {
			found = append(found, name)
		}
	}
	if len(found) == 0 {
		return "standard repository layout"
	}
	return strings.Join(found, ", ")
}

func inferOrganization(entries []contentEntry) string {
	patterns := []struct{ dir, desc string }{
		{"src", "source-first (src/ directory)"},
		{"lib", "library-focused structure"},
		{"app", "application-focused structure"},
		{"packages", "monorepo/multi-package structure"},
		{"cmd", "command-first Go layout"},
		{"docs", "documentation-heavy project"},
		{"examples", "example-driven project"},
	}
	dirs := make(map[string]bool)
	for _, e := range entries {
		if e.Type == "dir" {
			dirs[strings.ToLower(e.Name)] = true
		}
	}
	for _, p := range patterns {
		if dirs[p.dir] {
			return p.desc
		}
	}
	return "standard organization"
}

func inferProjectType(entries []contentEntry) string {
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[strings.ToLower(e.Name)] = true
	}
	switch {
	case names["package.json"]:
		return "JavaScript/Node.js project"
	case names["setup.py"] || names["requirements.txt"] || names["pyproject.toml"]:
		return "Python project"
	case names["go.mod"]:
		return "Go project"
	case names["gemfile"]:
		return "Ruby project"
	case names["cargo.toml"]:
		return "Rust project"
	default:
		return "multi-language or utility project"
	}
}

var requirementsFiles = []string{"requirements.txt", "package.json", "pyproject.toml", "Gemfile"}

func (r *Retriever) loadRequirements(ctx context.Context, owner, repo string) (Document, bool) {
	for _, file := range requirementsFiles {
		for _, branch := range []string{"main", "master"} {
			url := fmt.Sprintf("%s/%s/%s/%s/%s", r.rawBase, owner, repo, branch, file)
			body, err := r.fetch(ctx, url)
			if err != nil {
				continue
			}
			return Document{
				Source:     sourceFor(owner, repo),
				Kind:       SourceRequirements,
				File:       file,
				Branch:     branch,
				Content:    string(body),
				Confidence: "high",
			}, true
		}
	}
	return Document{}, false
}

type commitEntry struct {
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Date string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (r *Retriever) loadCommits(ctx context.Context, owner, repo string) (Document, bool) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=%d", r.apiBase, owner, repo, commitLimit)
	body, err := r.fetch(ctx, url)
	if err != nil {
		r.warnLevel(SourceCommits, err)
		return Document{}, false
	}
	var commits []commitEntry
	if err := json.Unmarshal(body, &commits); err != nil {
		r.warnLevel(SourceCommits, err)
		return Document{}, false
	}
	if len(commits) == 0 {
		return Document{}, false
	}
	if len(commits) > commitLimit {
		commits = commits[:commitLimit]
	}

	var sb strings.Builder
	sb.WriteString("RECENT COMMIT HISTORY\n\n")
	for _, c := range commits {
		firstLine, _, _ := strings.Cut(c.Commit.Message, "\n")
		fmt.Fprintf(&sb, "[%.10s] %s\n", c.Commit.Author.Date, firstLine)
	}

	return Document{
		Source:     sourceFor(owner, repo),
		Kind:       SourceCommits,
		Content:    strings.TrimSpace(sb.String()),
		Confidence: "medium",
	}, true
}

type issueEntry struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (r *Retriever) loadIssues(ctx context.Context, owner, repo string) (Document, bool) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues?state=open&per_page=%d", r.apiBase, owner, repo, issueLimit)
	body, err := r.fetch(ctx, url)
	if err != nil {
		r.warnLevel(SourceIssues, err)
		return Document{}, false
	}
	var issues []issueEntry
	if err := json.Unmarshal(body, &issues); err != nil {
		r.warnLevel(SourceIssues, err)
		return Document{}, false
	}
	if len(issues) == 0 {
		return Document{}, false
	}
	if len(issues) > issueLimit {
		issues = issues[:issueLimit]
	}

	var sb strings.Builder
	sb.WriteString("ACTIVE ISSUES AND DISCUSSIONS\n\n")
	for _, issue := range issues {
		preview := strings.ReplaceAll(issue.Body, "\n", " ")
		if preview == "" {
			preview = "No description"
		}
		if runes := []rune(preview); len(runes) > issueBodyPreview {
			preview = string(runes[:issueBodyPreview])
		}
		fmt.Fprintf(&sb, "- %s\n  %s\n", issue.Title, preview)
	}

	return Document{
		Source:     sourceFor(owner, repo),
		Kind:       SourceIssues,
		Content:    strings.TrimSpace(sb.String()),
		Confidence: "low",
	}, true
}

// fetch performs a GET through the failsafe executor. The executor runs
// with zero retries, so a failed level is simply an unavailable source.
func (r *Retriever) fetch(ctx context.Context, url string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if r.token != "" {
		req.Header.Set("Authorization", "token "+r.token)
	}

	resp, err := clients.ExecuteHTTP(callCtx, r.executor, func() (*http.Response, error) {
		return r.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func (r *Retriever) warnLevel(kind string, err error) {
	if r.logger != nil {
		r.logger.WithError(err).WithField("source", kind).Debug("Grounding source unavailable")
	}
}

func sourceFor(owner, repo string) string {
	return fmt.Sprintf("github://%s/%s", owner, repo)
}
