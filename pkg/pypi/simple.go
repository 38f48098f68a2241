// Package pypi implements a client for the Simple Repository API (PEP 503)
// just far enough to answer one question: which concrete releases of a
// distribution does the index know about?
//
// https://www.python.org/dev/peps/pep-0503/
package pypi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/machina-dev/matrixtool/pkg/pep440"
)

const DefaultBaseURL = "https://pypi.org/simple/"

// The repository API version this client understands (PEP 629); indexes
// advertising a later major version are rejected.
const maxRepositoryMajor = 1

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

func (c *Client) fillDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.UserAgent == "" {
		c.UserAgent = "github.com/machina-dev/matrixtool/pkg/pypi"
	}
}

type HTTPError struct {
	Status     string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %s", e.Status)
}

var reNameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizeName normalizes a distribution name per PEP 503: lowercased, with
// runs of "-", "_", and "." collapsed to a single "-".
func NormalizeName(name string) string {
	return strings.ToLower(reNameSeparators.ReplaceAllString(name, "-"))
}

func (c Client) get(ctx context.Context, requestURL string) (_ []byte, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("GET %q => %w", requestURL, err)
		}
	}()
	c.fillDefaults()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	if err := resp.Body.Close(); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{Status: resp.Status, StatusCode: resp.StatusCode}
	}
	return content, nil
}

func visitHTML(node *html.Node, visit func(*html.Node) error) error {
	if err := visit(node); err != nil {
		return err
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if err := visitHTML(child, visit); err != nil {
			return err
		}
	}
	return nil
}

func getAttr(node *html.Node, name string) (val string, ok bool) {
	for _, attr := range node.Attr {
		if attr.Namespace == "" && attr.Key == name {
			return attr.Val, true
		}
	}
	return "", false
}

func nodeText(node *html.Node) string {
	var ret strings.Builder
	_ = visitHTML(node, func(n *html.Node) error {
		if n.Type == html.TextNode {
			ret.WriteString(n.Data)
		}
		return nil
	})
	return strings.TrimSpace(ret.String())
}

// Releases fetches the project's page from the index and returns the distinct
// versions for which at least one file (sdist or wheel) is listed, sorted
// ascending.
func (c Client) Releases(ctx context.Context, project string) (_ []pep440.Version, err error) {
	c.fillDefaults()
	defer func() {
		if err != nil {
			err = fmt.Errorf("pypi.Releases: %q: %w", project, err)
		}
	}()

	content, err := c.get(ctx, c.BaseURL+NormalizeName(project)+"/")
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]pep440.Version)
	err = visitHTML(doc, func(node *html.Node) error {
		if node.Type != html.ElementNode {
			return nil
		}
		switch node.Data {
		case "meta":
			// PEP 629 API version check
			if name, _ := getAttr(node, "name"); name == "pypi:repository-version" {
				apiVersion, _ := getAttr(node, "content")
				major := strings.SplitN(apiVersion, ".", 2)[0]
				if major != fmt.Sprint(maxRepositoryMajor) {
					return fmt.Errorf("unsupported repository API version: %q", apiVersion)
				}
			}
		case "a":
			if ver, ok := versionFromFilename(project, nodeText(node)); ok {
				seen[ver.String()] = *ver
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ret := make([]pep440.Version, 0, len(seen))
	for _, ver := range seen {
		ret = append(ret, ver)
	}
	sortVersions(ret)
	return ret, nil
}

func sortVersions(vers []pep440.Version) {
	// insertion sort; release lists are small
	for i := 1; i < len(vers); i++ {
		for j := i; j > 0 && vers[j].Cmp(vers[j-1]) < 0; j-- {
			vers[j], vers[j-1] = vers[j-1], vers[j]
		}
	}
}

var sdistExts = []string{".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".zip"}

// versionFromFilename extracts the version from a distribution filename, if
// the filename belongs to the given project.
//
//	Django-2.0.13.tar.gz             -> 2.0.13
//	Django-2.1b1-py3-none-any.whl    -> 2.1b1
func versionFromFilename(project, filename string) (*pep440.Version, bool) {
	norm := NormalizeName(project)
	lower := strings.ToLower(filename)

	if strings.HasSuffix(lower, ".whl") || strings.HasSuffix(lower, ".egg") {
		stem := filename[:len(filename)-len(".whl")] // ".egg" is the same length
		parts := strings.SplitN(stem, "-", 3)
		if len(parts) < 2 || NormalizeName(parts[0]) != norm {
			return nil, false
		}
		ver, err := pep440.ParseVersion(parts[1])
		if err != nil {
			return nil, false
		}
		return ver, true
	}

	for _, ext := range sdistExts {
		if !strings.HasSuffix(lower, ext) {
			continue
		}
		stem := filename[:len(filename)-len(ext)]
		// sdist names may themselves contain "-"; find the split where
		// the left side is this project
		for i := len(stem) - 1; i > 0; i-- {
			if stem[i] != '-' {
				continue
			}
			if NormalizeName(stem[:i]) != norm {
				continue
			}
			ver, err := pep440.ParseVersion(stem[i+1:])
			if err != nil {
				return nil, false
			}
			return ver, true
		}
		return nil, false
	}

	return nil, false
}
