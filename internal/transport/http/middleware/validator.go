package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

// Reference validation errors
var (
	ErrEmptyReference   = errors.New("reference cannot be empty")
	ErrInvalidReference = errors.New("invalid reference format")
	ErrSchemeNotAllowed = errors.New("only http and https URLs are allowed")
	ErrUserInfoPresent  = errors.New("URLs with user credentials are not allowed")
	ErrHostNotSupported = errors.New("host is not a supported video site")
	ErrInvalidVideoID   = errors.New("reference does not carry a valid video id")
)

// bareID matches video and playlist ids handed over without a URL.
var bareID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateReference checks a user supplied video reference before it reaches
// the extraction tool. The id extracted from a URL must itself be a bare id,
// since it later names files in the download directory.
func ValidateReference(raw string) error {
	if err := ValidatePlaylistReference(raw); err != nil {
		return err
	}
	if id := domain.ExtractVideoID(strings.TrimSpace(raw)); !bareID.MatchString(id) {
		return ErrInvalidVideoID
	}
	return nil
}

// ValidatePlaylistReference checks a bare id or a supported URL. Playlist
// links carry no video id, so only the link itself is checked.
func ValidatePlaylistReference(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrEmptyReference
	}

	if !strings.Contains(raw, "://") {
		if !bareID.MatchString(raw) {
			return ErrInvalidReference
		}
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ErrInvalidReference
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return ErrSchemeNotAllowed
	}
	if u.User != nil {
		return ErrUserInfoPresent
	}
	if !domain.IsSupportedReference(raw, false) || !isSupportedHost(u.Hostname()) {
		return ErrHostNotSupported
	}
	return nil
}

var supportedHosts = []string{"youtube.com", "youtu.be"}

// isSupportedHost accepts the supported hosts and their subdomains.
func isSupportedHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range supportedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// RequireReference rejects requests whose query parameter param is not a
// valid video reference.
func RequireReference(param string) func(http.Handler) http.Handler {
	return requireParam(param, ValidateReference)
}

// RequirePlaylistReference is RequireReference for playlist links.
func RequirePlaylistReference(param string) func(http.Handler) http.Handler {
	return requireParam(param, ValidatePlaylistReference)
}

func requireParam(param string, validate func(string) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := validate(r.URL.Query().Get(param)); err != nil {
				writeError(w, http.StatusBadRequest, err.Error(), "INVALID_REFERENCE")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
