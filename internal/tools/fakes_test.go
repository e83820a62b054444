package tools

import (
	"context"

	"github.com/draftdeck/scrivener/pkg/llm"
	"github.com/draftdeck/scrivener/pkg/search"
)

// fakeLLM returns a canned response (or error) and records the last prompt.
type fakeLLM struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.calls++
	if len(messages) > 0 {
		f.lastPrompt = messages[len(messages)-1].Content
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeSearch returns canned results and records the last query.
type fakeSearch struct {
	results   []search.Result
	err       error
	lastQuery string
	lastOpts  search.SearchOptions
}

func (f *fakeSearch) Search(_ context.Context, query string, opts search.SearchOptions) ([]search.Result, error) {
	f.lastQuery = query
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}
