package fetch

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kam-pm/kam/pkg/archive"
	"github.com/kam-pm/kam/pkg/errors"
)

// candidateURLs builds the ranked list of network locations for a
// module, crossing the three URL patterns with the supported archive
// extensions. Pattern order outranks extension order.
func candidateURLs(source, id, version string) []string {
	source = strings.TrimSuffix(source, "/")
	patterns := []string{
		"%[1]s/%[2]s-%[3]s%[4]s",
		"%[1]s/releases/download/%[3]s/%[2]s-%[3]s%[4]s",
		"%[1]s/raw/main/%[2]s-%[3]s%[4]s",
	}

	var urls []string
	for _, pattern := range patterns {
		for _, ext := range archive.FetchExts {
			urls = append(urls, fmt.Sprintf(pattern, source, id, version, ext))
		}
	}
	return urls
}

// probe fetches a single candidate URL. Any non-2xx status or
// transport error is reported to the caller, which treats it as
// progression rather than failure.
func (f *Fetcher) probe(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNetwork, "failed to build request for %s", url)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNetwork, "request to %s failed", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Newf(errors.ErrNetwork, "%s returned %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNetwork, "failed to read response from %s", url)
	}
	return data, nil
}
