package uploader

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	githubAPIBase = "https://api.github.com"
	githubRawBase = "https://raw.githubusercontent.com"
)

// GitHubSettings configures uploads into a repository
type GitHubSettings struct {
	Repository string `yaml:"repository"` // owner/repo
	Branch     string `yaml:"branch"`
	Token      string `yaml:"token"`
	Path       string `yaml:"path"`
	APIBase    string `yaml:"api_base,omitempty"`
}

func (s *GitHubSettings) Validate() error {
	if err := required(map[string]string{
		"repository": s.Repository,
		"token":      s.Token,
	}); err != nil {
		return err
	}
	if _, _, err := splitRepository(s.Repository); err != nil {
		return err
	}
	return nil
}

func splitRepository(repository string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.Trim(repository, "/"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository %q must be in owner/repo form", repository)
	}
	return owner, repo, nil
}

type githubUploader struct {
	client   *resty.Client
	owner    string
	repo     string
	branch   string
	pathTmpl string
	deps     Deps
	logger   *slog.Logger
}

type githubContent struct {
	SHA string `json:"sha"`
}

type githubPut struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type githubError struct {
	Message string `json:"message"`
}

func init() {
	Register(Descriptor{
		ID:          "github",
		Description: "GitHub repository",
		NewSettings: func() Settings { return &GitHubSettings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*GitHubSettings)
			owner, repo, err := splitRepository(s.Repository)
			if err != nil {
				return nil, err
			}
			branch := s.Branch
			if branch == "" {
				branch = "main"
			}
			base := s.APIBase
			if base == "" {
				base = githubAPIBase
			}
			client := resty.New().
				SetBaseURL(strings.TrimSuffix(base, "/")).
				SetAuthToken(s.Token).
				SetHeader("Accept", "application/vnd.github+json").
				SetHeader("X-GitHub-Api-Version", "2022-11-28")
			return &githubUploader{
				client:   client,
				owner:    owner,
				repo:     repo,
				branch:   branch,
				pathTmpl: s.Path,
				deps:     deps,
				logger:   deps.Logger.With("backend", "github", "repository", owner+"/"+repo),
			}, nil
		},
	})
}

// Upload implements Uploader. An existing file at the same path is updated.
func (u *githubUploader) Upload(ctx context.Context, content []byte, name, _ string) (string, error) {
	filePath := objectKey(u.pathTmpl, name, u.deps)
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", u.owner, u.repo, escapeKey(filePath))

	sha, err := u.existingSHA(ctx, endpoint)
	if err != nil {
		return "", err
	}

	var failure githubError
	resp, err := u.client.R().
		SetContext(ctx).
		SetBody(githubPut{
			Message: "Upload image: " + name,
			Content: base64.StdEncoding.EncodeToString(content),
			Branch:  u.branch,
			SHA:     sha,
		}).
		SetError(&failure).
		Put(endpoint)
	if err != nil {
		return "", remoteError("github", err)
	}
	if resp.IsError() {
		return "", &RemoteError{Backend: "github", Message: githubMessage(resp, failure)}
	}

	u.logger.Debug("file committed", "path", filePath, "updated", sha != "")
	return fmt.Sprintf("%s/%s/%s/%s/%s", githubRawBase, u.owner, u.repo, u.branch, escapeKey(filePath)), nil
}

// existingSHA returns the blob SHA at endpoint, or "" when nothing is there yet
func (u *githubUploader) existingSHA(ctx context.Context, endpoint string) (string, error) {
	var content githubContent
	var failure githubError
	resp, err := u.client.R().
		SetContext(ctx).
		SetQueryParam("ref", u.branch).
		SetResult(&content).
		SetError(&failure).
		Get(endpoint)
	if err != nil {
		return "", remoteError("github", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", nil
	}
	if resp.IsError() {
		return "", &RemoteError{Backend: "github", Message: githubMessage(resp, failure)}
	}
	return content.SHA, nil
}

func githubMessage(resp *resty.Response, failure githubError) string {
	if failure.Message != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode(), failure.Message)
	}
	return fmt.Sprintf("status %d", resp.StatusCode())
}

// IsHosted reports raw URLs that already point into this repository
func (u *githubUploader) IsHosted(link *url.URL) bool {
	if !strings.EqualFold(link.Hostname(), "raw.githubusercontent.com") {
		return false
	}
	prefix := "/" + strings.ToLower(u.owner+"/"+u.repo) + "/"
	return strings.HasPrefix(strings.ToLower(link.Path), prefix)
}

var _ HostedChecker = (*githubUploader)(nil)
