package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/aretw0/releasebot/pkg/ports"
)

type pageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
}

func (p pageInfo) hasMore(dir ports.Direction) bool {
	if dir == ports.Forward {
		return p.HasNextPage
	}
	return p.HasPreviousPage
}

type pullRequestEdge struct {
	Cursor githubv4.String
	Node   struct {
		ID     githubv4.ID
		Title  githubv4.String
		Number githubv4.Int
		Author struct {
			Login githubv4.String
		}
		MergeCommit *struct {
			Oid    githubv4.GitObjectID
			Author struct {
				Name  githubv4.String
				Email githubv4.String
			}
		}
	}
}

type issueEdge struct {
	Cursor githubv4.String
	Node   struct {
		ID     githubv4.ID
		Title  githubv4.String
		Number githubv4.Int
		Author struct {
			Login githubv4.String
		}
		AuthorAssociation githubv4.CommentAuthorAssociation
	}
}

// pageVariables maps a page request onto the first/after or last/before arguments.
func pageVariables(owner, name string, req ports.PageRequest) map[string]any {
	size := githubv4.Int(req.Size)
	vars := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"first":  (*githubv4.Int)(nil),
		"last":   (*githubv4.Int)(nil),
		"after":  (*githubv4.String)(nil),
		"before": (*githubv4.String)(nil),
	}
	var cursor *githubv4.String
	if req.Cursor != "" {
		cursor = githubv4.NewString(githubv4.String(req.Cursor))
	}
	if req.Direction == ports.Forward {
		vars["first"] = &size
		vars["after"] = cursor
	} else {
		vars["last"] = &size
		vars["before"] = cursor
	}
	return vars
}

// MergedPullRequests pages through merged pull requests.
func (c *Client) MergedPullRequests() ports.PagingSource {
	return pullRequestSource{c}
}

// OpenIssues pages through open issues.
func (c *Client) OpenIssues() ports.PagingSource {
	return issueSource{c}
}

type pullRequestSource struct{ c *Client }

func (s pullRequestSource) List(ctx context.Context, req ports.PageRequest) (ports.Page, error) {
	var q struct {
		Repository struct {
			PullRequests struct {
				Edges    []pullRequestEdge
				PageInfo pageInfo
			} `graphql:"pullRequests(states: $states, first: $first, last: $last, after: $after, before: $before)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := pageVariables(s.c.cfg.Owner, s.c.cfg.Repository, req)
	vars["states"] = []githubv4.PullRequestState{githubv4.PullRequestStateMerged}

	s.c.logger.Debug("querying pull requests", "direction", req.Direction, "cursor", req.Cursor)
	if err := s.c.gql.Query(ctx, &q, vars); err != nil {
		return ports.Page{}, fmt.Errorf("github: pull request query failed: %w", err)
	}

	conn := q.Repository.PullRequests
	page := ports.Page{HasMore: conn.PageInfo.hasMore(req.Direction)}
	for _, e := range conn.Edges {
		edge := ports.Edge{
			Title:       string(e.Node.Title),
			Cursor:      string(e.Cursor),
			SubjectID:   fmt.Sprint(e.Node.ID),
			Number:      int(e.Node.Number),
			AuthorLogin: string(e.Node.Author.Login),
		}
		if mc := e.Node.MergeCommit; mc != nil {
			edge.MergeReference = string(mc.Oid)
			edge.AuthorName = string(mc.Author.Name)
			edge.AuthorEmail = string(mc.Author.Email)
		}
		page.Edges = append(page.Edges, edge)
	}
	return page, nil
}

type issueSource struct{ c *Client }

func (s issueSource) List(ctx context.Context, req ports.PageRequest) (ports.Page, error) {
	var q struct {
		Repository struct {
			Issues struct {
				Edges    []issueEdge
				PageInfo pageInfo
			} `graphql:"issues(states: $states, first: $first, last: $last, after: $after, before: $before)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := pageVariables(s.c.cfg.Owner, s.c.cfg.Repository, req)
	vars["states"] = []githubv4.IssueState{githubv4.IssueStateOpen}

	s.c.logger.Debug("querying issues", "direction", req.Direction, "cursor", req.Cursor)
	if err := s.c.gql.Query(ctx, &q, vars); err != nil {
		return ports.Page{}, fmt.Errorf("github: issue query failed: %w", err)
	}

	conn := q.Repository.Issues
	page := ports.Page{HasMore: conn.PageInfo.hasMore(req.Direction)}
	for _, e := range conn.Edges {
		page.Edges = append(page.Edges, ports.Edge{
			Title:             string(e.Node.Title),
			Cursor:            string(e.Cursor),
			SubjectID:         fmt.Sprint(e.Node.ID),
			Number:            int(e.Node.Number),
			AuthorLogin:       string(e.Node.Author.Login),
			AuthorAssociation: string(e.Node.AuthorAssociation),
		})
	}
	return page, nil
}

// AddComment posts body on the issue or pull request with the given node ID.
func (c *Client) AddComment(ctx context.Context, subjectID, body string) error {
	var m struct {
		AddComment struct {
			Subject struct {
				ID githubv4.ID
			}
		} `graphql:"addComment(input: $input)"`
	}
	input := githubv4.AddCommentInput{
		SubjectID: githubv4.ID(subjectID),
		Body:      githubv4.String(body),
	}
	if err := c.gql.Mutate(ctx, &m, input, nil); err != nil {
		return fmt.Errorf("github: failed to comment on %s: %w", subjectID, err)
	}
	c.logger.Debug("comment added", "subject", subjectID)
	return nil
}
