package scrape

import (
	"fmt"
	"regexp"

	"github.com/blang/semver/v4"
)

// Matches the leading major.minor.patch of a Chromium product string
// such as "HeadlessChrome/120.0.6099.28" (the fourth segment is a build
// number semver cannot carry).
var reBrowserVersion = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

func parseBrowserVersion(product string) (ver semver.Version, err error) {
	m := reBrowserVersion.FindStringSubmatch(product)
	if m == nil {
		err = fmt.Errorf("no version found in product string %q", product)
		return
	}
	return semver.ParseTolerant(m[1])
}

// CheckBrowserVersion errors if the browser product string reports a
// version older than min. min may be shortened ("118" or "118.0").
func CheckBrowserVersion(product, min string) error {
	minVer, err := semver.ParseTolerant(min)
	if err != nil {
		return fmt.Errorf("bad minimum browser version %v: %w", min, err)
	}
	ver, err := parseBrowserVersion(product)
	if err != nil {
		return err
	}
	if ver.LT(minVer) {
		return fmt.Errorf("browser version %v is older than required %v", ver, minVer)
	}
	return nil
}
