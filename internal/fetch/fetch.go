// Package fetch downloads remote PDF documents for extraction.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/Kamol774/pdf-text-extrator/internal/document"
)

// MaxURLLength bounds accepted URLs.
const MaxURLLength = 2048

// ErrInvalidURL is returned for URLs that are not fetched at all.
var ErrInvalidURL = errors.New("invalid document URL")

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Fetcher downloads documents over http/https. Only public unicast
// addresses are dialed, including after redirects.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	allowAddr func(netip.Addr) bool
}

// NewFetcher creates a fetcher reading at most maxBytes+1 bytes per
// document, so an oversized body is still reported by the validator.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = document.DefaultMaxBytes
	}
	f := &Fetcher{maxBytes: maxBytes}
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: f.control,
	}
	f.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
	return f
}

// WithClient replaces the HTTP client. The address check of the default
// transport does not apply to c.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// WithAllowAddr replaces the address check. allow is consulted for literal
// IP hosts and for every address dialed.
func (f *Fetcher) WithAllowAddr(allow func(netip.Addr) bool) *Fetcher {
	f.allowAddr = allow
	return f
}

// PublicAddr reports whether a is a globally routable unicast address.
// Loopback, private, link-local, shared and unspecified addresses are not.
func PublicAddr(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsGlobalUnicast() && !a.IsPrivate() && !sharedAddressSpace.Contains(a)
}

func (f *Fetcher) allowed(a netip.Addr) bool {
	if f.allowAddr != nil {
		return f.allowAddr(a)
	}
	return PublicAddr(a)
}

// control runs after name resolution, so it sees the address actually
// dialed.
func (f *Fetcher) control(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if !f.allowed(addr) {
		return fmt.Errorf("%w: address %s is not public", ErrInvalidURL, addr)
	}
	return nil
}

// Fetch downloads rawURL into an UploadRequest. Network failures and
// non-2xx responses wrap document.ErrTransport.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (document.UploadRequest, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return document.UploadRequest{}, err
	}
	if addr, err := netip.ParseAddr(strings.Trim(u.Hostname(), "[]")); err == nil && !f.allowed(addr) {
		return document.UploadRequest{}, fmt.Errorf("%w: address %s is not public", ErrInvalidURL, addr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return document.UploadRequest{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "pdf-text-extractor/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return document.UploadRequest{}, ctxErr
		}
		if errors.Is(err, ErrInvalidURL) {
			return document.UploadRequest{}, fmt.Errorf("%w: host %s is not allowed", ErrInvalidURL, u.Hostname())
		}
		return document.UploadRequest{}, fmt.Errorf("%w: download: %w", document.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return document.UploadRequest{}, fmt.Errorf("%w: download failed: HTTP %d", document.ErrTransport, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return document.UploadRequest{}, fmt.Errorf("%w: read body: %w", document.ErrTransport, err)
	}

	size := int64(len(data))
	if resp.ContentLength > size {
		size = resp.ContentLength
	}

	return document.UploadRequest{
		FileBytes:         data,
		DeclaredMediaType: mediaType(resp.Header.Get("Content-Type"), data),
		ByteSize:          size,
		FileName:          fileName(u),
	}, nil
}

func parseURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url required", ErrInvalidURL)
	}
	if len(rawURL) > MaxURLLength {
		return nil, fmt.Errorf("%w: url too long", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: url must be http/https", ErrInvalidURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: url has no host", ErrInvalidURL)
	}
	return u, nil
}

// mediaType strips parameters from the Content-Type header. Generic binary
// responses are treated as PDF when the body carries the PDF magic bytes.
func mediaType(header string, body []byte) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(header))
	}
	if (mt == "" || mt == "application/octet-stream") && bytes.HasPrefix(body, []byte("%PDF")) {
		return string(document.ContentTypePDF)
	}
	return mt
}

func fileName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "document.pdf"
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}
