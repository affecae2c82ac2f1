package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a minimal stand-in for the chatguard admin API
type fakeAPI struct {
	mu        sync.Mutex
	whitelist map[string]string
	keywords  map[string]bool
	requests  []string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	api := &fakeAPI{whitelist: map[string]string{}, keywords: map[string]bool{}}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, r.Method+" "+r.URL.RequestURI())

	var body map[string]interface{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	str := func(k string) string { s, _ := body[k].(string); return s }

	switch {
	case r.URL.Path == "/stats":
		json.NewEncoder(w).Encode(DailyStats{Date: "2026-03-04", MessagesTotal: 10, SpamBlocked: 2, SpamRate: 20})
	case r.URL.Path == "/api/whitelist" && r.Method == http.MethodGet:
		var entries []WhitelistEntry
		for id, name := range a.whitelist {
			entries = append(entries, WhitelistEntry{UserID: id, Username: name})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"entries": entries})
	case r.URL.Path == "/api/whitelist" && r.Method == http.MethodPost:
		a.whitelist[str("user_id")] = str("username")
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	case r.URL.Path == "/api/whitelist/42" && r.Method == http.MethodDelete:
		if _, ok := a.whitelist["42"]; !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "user is not whitelisted"})
			return
		}
		delete(a.whitelist, "42")
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	case r.URL.Path == "/api/keywords" && r.Method == http.MethodGet:
		var out []Keyword
		for kw, active := range a.keywords {
			if active || r.URL.Query().Get("all") == "true" {
				out = append(out, Keyword{Keyword: kw, Active: active})
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"keywords": out})
	case r.URL.Path == "/api/keywords" && r.Method == http.MethodPost:
		a.keywords[str("keyword")] = true
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	case r.URL.Path == "/api/keywords/moon shot" && r.Method == http.MethodDelete:
		a.keywords["moon shot"] = false
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	case r.URL.Path == "/api/score":
		spam := body["has_media"] == true
		json.NewEncoder(w).Encode(Score{IsSpam: spam, Score: 60, Reasons: []string{"media with spam keywords"}})
	default:
		http.NotFound(w, r)
	}
}

func TestHandler_Stats(t *testing.T) {
	api, srv := newFakeAPI(t)
	h := NewHandler(NewClient(srv.URL))

	_, out, err := h.Stats(context.Background(), nil, StatsInput{ChatID: "-100 1"})
	require.NoError(t, err)
	assert.Equal(t, 10, out.MessagesTotal)
	assert.Equal(t, 20.0, out.SpamRate)
	assert.Equal(t, []string{"GET /stats?chat_id=-100+1"}, api.requests)
}

func TestHandler_Whitelist(t *testing.T) {
	_, srv := newFakeAPI(t)
	h := NewHandler(NewClient(srv.URL))
	ctx := context.Background()

	_, _, err := h.WhitelistAdd(ctx, nil, WhitelistAddInput{UserID: " "})
	assert.EqualError(t, err, "user_id is required")

	_, res, err := h.WhitelistAdd(ctx, nil, WhitelistAddInput{UserID: "42", Username: "bob"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, list, err := h.WhitelistList(ctx, nil, WhitelistListInput{})
	require.NoError(t, err)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "bob", list.Entries[0].Username)

	_, _, err = h.WhitelistRemove(ctx, nil, WhitelistRemoveInput{UserID: "42"})
	require.NoError(t, err)
	_, _, err = h.WhitelistRemove(ctx, nil, WhitelistRemoveInput{UserID: "42"})
	assert.EqualError(t, err, "HTTP 404: user is not whitelisted")

	_, list, err = h.WhitelistList(ctx, nil, WhitelistListInput{})
	require.NoError(t, err)
	assert.NotNil(t, list.Entries)
	assert.Empty(t, list.Entries)
}

func TestHandler_Keywords(t *testing.T) {
	api, srv := newFakeAPI(t)
	h := NewHandler(NewClient(srv.URL))
	ctx := context.Background()

	_, _, err := h.KeywordLearn(ctx, nil, KeywordLearnInput{})
	assert.Error(t, err)

	_, res, err := h.KeywordLearn(ctx, nil, KeywordLearnInput{Keyword: "moon shot", Category: "pump"})
	require.NoError(t, err)
	assert.Equal(t, "learned moon shot", res.Message)

	_, _, err = h.KeywordForget(ctx, nil, KeywordForgetInput{Keyword: "moon shot"})
	require.NoError(t, err)
	assert.Contains(t, api.requests, "DELETE /api/keywords/moon%20shot")

	_, active, err := h.KeywordList(ctx, nil, KeywordListInput{})
	require.NoError(t, err)
	assert.Empty(t, active.Keywords)

	_, all, err := h.KeywordList(ctx, nil, KeywordListInput{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, all.Keywords, 1)
	assert.False(t, all.Keywords[0].Active)
}

func TestHandler_ScoreText(t *testing.T) {
	_, srv := newFakeAPI(t)
	h := NewHandler(NewClient(srv.URL))

	_, out, err := h.ScoreText(context.Background(), nil, ScoreTextInput{Text: "casino airdrop", HasMedia: true})
	require.NoError(t, err)
	assert.True(t, out.IsSpam)
	assert.Equal(t, 60, out.Score)
}

func TestServer_ListsTools(t *testing.T) {
	_, srv := newFakeAPI(t)
	s := NewServer(srv.URL, "test")
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"keyword_forget", "keyword_learn", "keyword_list", "moderation_stats",
		"score_text", "whitelist_add", "whitelist_list", "whitelist_remove",
	}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "score_text",
		Arguments: map[string]interface{}{"text": "hi", "has_media": true},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
}
