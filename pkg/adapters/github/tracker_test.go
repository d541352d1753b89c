package github_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/releasebot/pkg/adapters/github"
	"github.com/aretw0/releasebot/pkg/ports"
)

func TestBranchExists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/user-cont/rlsbot-test/branches/0.1.0-release", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"name": "0.1.0-release"})
	})
	mux.HandleFunc("GET /repos/user-cont/rlsbot-test/branches/0.2.0-release", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"message": "Branch not found"})
	})
	mux.HandleFunc("GET /repos/user-cont/rlsbot-test/branches/broken", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, map[string]any{"message": "boom"})
	})
	c := newTestClient(t, mux)

	ok, err := c.BranchExists(context.Background(), "0.1.0-release")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.BranchExists(context.Background(), "0.2.0-release")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.BranchExists(context.Background(), "broken")
	assert.Error(t, err)
}

func TestOpenPullRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/user-cont/rlsbot-test", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"default_branch": "main"})
	})
	mux.HandleFunc("POST /repos/user-cont/rlsbot-test/pulls", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0.2.0 release", body["title"])
		assert.Equal(t, "0.2.0-release", body["head"])
		assert.Equal(t, "main", body["base"])
		assert.Equal(t, true, body["maintainer_can_modify"])
		writeJSON(t, w, http.StatusCreated, map[string]any{"number": 12, "html_url": "https://github.com/user-cont/rlsbot-test/pull/12"})
	})

	pr, err := newTestClient(t, mux).OpenPullRequest(context.Background(), ports.PullRequestRequest{
		Title: "0.2.0 release", Head: "0.2.0-release", Body: "Fixes #7",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, pr.Number)
	assert.Equal(t, "https://github.com/user-cont/rlsbot-test/pull/12", pr.HTMLURL)
}

func TestIssueUpdates(t *testing.T) {
	var labels []string
	var state string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/user-cont/rlsbot-test/issues/12/labels", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&labels))
		writeJSON(t, w, http.StatusOK, []any{})
	})
	mux.HandleFunc("PATCH /repos/user-cont/rlsbot-test/issues/7", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		state = body["state"]
		writeJSON(t, w, http.StatusOK, map[string]any{"number": 7})
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.AddLabels(context.Background(), 12, []string{"release", "bot"}))
	require.NoError(t, c.CloseIssue(context.Background(), 7))
	assert.Equal(t, []string{"release", "bot"}, labels)
	assert.Equal(t, "closed", state)
}

func TestUserContact(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/release-bot", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"login": "release-bot", "name": "Release Bot"})
	})

	name, email, err := newTestClient(t, mux).UserContact(context.Background(), "release-bot")
	require.NoError(t, err)
	assert.Equal(t, "Release Bot", name)
	assert.Equal(t, github.DefaultUserEmail, email)
}
