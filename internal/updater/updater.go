// Package updater checks for new farmcheck releases on GitHub and can
// self-update the binary in place. It uses the GitHub Releases API (no
// auth required for public repos) and replaces the running binary
// atomically: download to a temp file next to it, then rename.
package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	// githubRepo is the repository path for API calls.
	githubRepo = "HendryAvila/farmcheck"

	// DefaultEndpoint is the GitHub API endpoint for the latest release.
	DefaultEndpoint = "https://api.github.com/repos/" + githubRepo + "/releases/latest"

	// checkTimeout is how long we wait for the GitHub API.
	checkTimeout = 10 * time.Second

	binaryName = "farmcheck"
)

// maxBinarySize bounds the download and each archive entry. Larger input
// is an error, never a truncated binary.
var maxBinarySize int64 = 200 << 20

// ReleaseInfo holds the relevant fields from a GitHub release.
type ReleaseInfo struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset represents a downloadable file in a GitHub release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// UpdateResult is returned by CheckVersion to communicate the outcome.
type UpdateResult struct {
	// CurrentVersion is the running version (e.g. "0.2.0").
	CurrentVersion string
	// LatestVersion is the newest release (e.g. "0.3.0").
	LatestVersion string
	// UpdateAvailable is true when latest > current.
	UpdateAvailable bool
	// ReleaseURL is the GitHub page for the release.
	ReleaseURL string
}

// ErrUpToDate is returned by SelfUpdate when no newer release exists.
var ErrUpToDate = errors.New("already at latest version")

// Checker talks to the release endpoint. The zero value is not usable;
// use New.
type Checker struct {
	// Endpoint is the latest-release API URL.
	Endpoint string
	// Client performs every request.
	Client *http.Client
	// Executable returns the path of the binary to replace.
	Executable func() (string, error)
	// GOOS and GOARCH select the release asset.
	GOOS, GOARCH string
}

// New returns a Checker for the public GitHub releases.
func New() *Checker {
	return &Checker{
		Endpoint:   DefaultEndpoint,
		Client:     &http.Client{Timeout: checkTimeout},
		Executable: os.Executable,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}
}

// CheckVersion queries GitHub for the latest release and compares it
// against the current version. It never returns an error to the caller:
// network failures leave UpdateAvailable false.
func (c *Checker) CheckVersion(ctx context.Context, currentVersion string) *UpdateResult {
	result := &UpdateResult{
		CurrentVersion: normalizeVersion(currentVersion),
	}

	release, err := c.latest(ctx, currentVersion)
	if err != nil {
		return result
	}

	result.LatestVersion = normalizeVersion(release.TagName)
	result.ReleaseURL = release.HTMLURL
	result.UpdateAvailable = isNewer(result.CurrentVersion, result.LatestVersion)

	return result
}

// SelfUpdate downloads the release asset for the configured OS/arch and
// replaces the running executable. It returns the installed version.
func (c *Checker) SelfUpdate(ctx context.Context, currentVersion string) (string, error) {
	// 1. Fetch latest release info
	release, err := c.latest(ctx, currentVersion)
	if err != nil {
		return "", fmt.Errorf("checking latest release: %w", err)
	}

	latestVersion := normalizeVersion(release.TagName)
	if !isNewer(normalizeVersion(currentVersion), latestVersion) {
		return "", fmt.Errorf("%w (%s)", ErrUpToDate, currentVersion)
	}

	// 2. Find the right asset for this OS/arch
	assetName := c.assetName(latestVersion)
	var downloadURL string
	for _, asset := range release.Assets {
		if asset.Name == assetName {
			downloadURL = asset.BrowserDownloadURL
			break
		}
	}
	if downloadURL == "" {
		return "", fmt.Errorf("no release asset found for %s/%s (looking for %s)", c.GOOS, c.GOARCH, assetName)
	}

	// 3. Download the archive
	archive, err := c.download(ctx, downloadURL)
	if err != nil {
		return "", err
	}

	// 4. Extract the binary from the archive
	binaryData, err := extractBinary(archive, assetName)
	if err != nil {
		return "", fmt.Errorf("extracting binary: %w", err)
	}

	// 5. Atomic replace
	execPath, err := c.Executable()
	if err != nil {
		return "", fmt.Errorf("finding current executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks: %w", err)
	}
	if err := replaceBinary(execPath, binaryData, c.GOOS == "windows"); err != nil {
		return "", err
	}

	return latestVersion, nil
}

func (c *Checker) latest(ctx context.Context, currentVersion string) (*ReleaseInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", binaryName+"/"+currentVersion)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("parsing release info: %w", err)
	}
	return &release, nil
}

func (c *Checker) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %d", resp.StatusCode)
	}
	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download: %w", err)
	}
	return data, nil
}

// assetName matches GoReleaser's name_template.
func (c *Checker) assetName(version string) string {
	ext := "tar.gz"
	if c.GOOS == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", binaryName, version, c.GOOS, c.GOARCH, ext)
}

// replaceBinary writes data next to path and renames it over path.
// A running binary cannot be replaced on Windows, so the old one is moved
// aside first.
func replaceBinary(path string, data []byte, windows bool) error {
	tmpPath := path + ".new"
	if err := os.WriteFile(tmpPath, data, 0o755); err != nil {
		return fmt.Errorf("writing new binary: %w", err)
	}

	if windows {
		oldPath := path + ".old"
		_ = os.Remove(oldPath)
		if err := os.Rename(path, oldPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("backing up current binary: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

// extractBinary returns the farmcheck binary from a .tar.gz or .zip
// archive.
func extractBinary(archive []byte, assetName string) ([]byte, error) {
	if strings.HasSuffix(assetName, ".zip") {
		return extractFromZip(archive)
	}
	return extractFromTarGz(bytes.NewReader(archive))
}

func isBinary(name string) bool {
	base := filepath.Base(name)
	return base == binaryName || base == binaryName+".exe"
}

// extractFromTarGz pulls the binary out of a .tar.gz archive.
func extractFromTarGz(reader io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(reader)
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar: %w", err)
		}

		if isBinary(header.Name) {
			data, err := readLimited(tr)
			if err != nil {
				return nil, fmt.Errorf("reading binary from tar: %w", err)
			}
			return data, nil
		}
	}

	return nil, fmt.Errorf("%s binary not found in archive", binaryName)
}

// extractFromZip pulls the binary out of a .zip archive.
func extractFromZip(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}

	for _, f := range zr.File {
		if !isBinary(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in zip: %w", f.Name, err)
		}
		data, err := readLimited(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading binary from zip: %w", err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("%s binary not found in archive", binaryName)
}

// readLimited reads r fully, failing when it holds more than
// maxBinarySize bytes.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBinarySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBinarySize {
		return nil, fmt.Errorf("larger than %d bytes", maxBinarySize)
	}
	return data, nil
}

// normalizeVersion strips the leading "v" from version strings.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// isNewer returns true if latest is a higher version than current.
// Compares up to three numeric semver parts.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}

	currentParts := strings.Split(current, ".")
	latestParts := strings.Split(latest, ".")

	// Pad to 3 parts
	for len(currentParts) < 3 {
		currentParts = append(currentParts, "0")
	}
	for len(latestParts) < 3 {
		latestParts = append(latestParts, "0")
	}

	for i := 0; i < 3; i++ {
		c := parseIntSafe(currentParts[i])
		l := parseIntSafe(latestParts[i])
		if l > c {
			return true
		}
		if l < c {
			return false
		}
	}

	return false
}

// parseIntSafe converts a leading run of digits to int, returning 0 when
// there is none.
func parseIntSafe(s string) int {
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
