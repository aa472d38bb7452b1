package downloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/canirun/canirun/pkg/xio"
)

const (
	HuggingFacePrefix = "huggingface://"
	HTTPPrefix        = "http://"
	HTTPSPrefix       = "https://"
	GithubURI         = "github:"
	GithubURI2        = "github://"
	LocalPrefix       = "file://"
)

// maxBodySize bounds what Read loads into memory. Catalogs are a few hundred KB.
const maxBodySize = 32 << 20

// URI names a remote or local document: a plain URL, a file:// path, or one of the
// github: and huggingface:// shorthands.
type URI string

func (u URI) LooksLikeURL() bool {
	return strings.HasPrefix(string(u), HTTPPrefix) ||
		strings.HasPrefix(string(u), HTTPSPrefix) ||
		strings.HasPrefix(string(u), HuggingFacePrefix) ||
		strings.HasPrefix(string(u), GithubURI) ||
		strings.HasPrefix(string(u), GithubURI2)
}

func (u URI) LooksLikeLocal() bool {
	return strings.HasPrefix(string(u), LocalPrefix) || strings.HasPrefix(string(u), "/") || strings.HasPrefix(string(u), ".")
}

// ResolveURL expands the shorthands:
//
//	github:org/repo/path/file.yaml@branch        -> https://raw.githubusercontent.com/org/repo/branch/path/file.yaml
//	huggingface://org/repo/file.gguf@revision    -> https://huggingface.co/org/repo/resolve/revision/file.gguf
//
// The branch defaults to main. Anything else, including malformed shorthands, is
// returned unchanged.
func (u URI) ResolveURL() string {
	s := string(u)
	switch {
	case strings.HasPrefix(s, GithubURI2):
		return githubRaw(strings.TrimPrefix(s, GithubURI2), s)
	case strings.HasPrefix(s, GithubURI):
		return githubRaw(strings.TrimPrefix(s, GithubURI), s)
	case strings.HasPrefix(s, HuggingFacePrefix):
		repository, branch := splitRef(strings.TrimPrefix(s, HuggingFacePrefix))
		parts := strings.SplitN(repository, "/", 3)
		if len(parts) < 3 {
			return s
		}
		return fmt.Sprintf("https://huggingface.co/%s/%s/resolve/%s/%s", parts[0], parts[1], branch, parts[2])
	}
	return s
}

func githubRaw(repository, original string) string {
	repository, branch := splitRef(repository)
	parts := strings.SplitN(repository, "/", 3)
	if len(parts) < 3 {
		return original
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", parts[0], parts[1], branch, parts[2])
}

func splitRef(s string) (path, ref string) {
	path, ref, found := strings.Cut(s, "@")
	if !found || ref == "" {
		ref = "main"
	}
	return path, ref
}

// Read returns the document behind the URI. Local paths are read from disk. A nil client
// uses http.DefaultClient; authorization, when set, is sent as the Authorization header.
func (u URI) Read(ctx context.Context, client *http.Client, authorization string) ([]byte, error) {
	url := u.ResolveURL()

	if u.LooksLikeLocal() {
		return os.ReadFile(strings.TrimPrefix(url, LocalPrefix))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if authorization != "" {
		req.Header.Add("Authorization", authorization)
	}
	if client == nil {
		client = http.DefaultClient
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s. Status code: %d", url, response.StatusCode)
	}
	return xio.ReadAll(ctx, response.Body, maxBodySize)
}
