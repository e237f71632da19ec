package install

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cavaliercoder/grab"

	"github.com/SambhavSurthi/codolio-scraper/file"
)

// browserRevision is the chromium snapshot the scraper selectors are
// tested against. Bump it together with the selector profile.
const browserRevision = 1131657

// snapshotName returns the snapshot folder and archive name for this
// platform.
func snapshotName() (string, string) {
	switch runtime.GOOS {
	case "darwin":
		return "Mac", "chrome-mac.zip"
	case "windows":
		return "Win_x64", "chrome-win.zip"
	default:
		return "Linux_x64", "chrome-linux.zip"
	}
}

// BrowserBin returns the path the managed browser binary lives at under
// dataDir, whether or not it has been installed yet.
func BrowserBin(dataDir string) string {
	base := path.Join(dataDir, "browser")
	switch runtime.GOOS {
	case "darwin":
		return path.Join(base, "chrome-mac", "Chromium.app",
			"Contents", "MacOS", "Chromium")
	case "windows":
		return path.Join(base, "chrome-win", "chrome.exe")
	default:
		return path.Join(base, "chrome-linux", "chrome")
	}
}

// InstalledBrowser returns the managed browser binary under dataDir, or
// empty when none has been installed.
func InstalledBrowser(dataDir string) string {
	bin := BrowserBin(dataDir)
	if !file.Exists(bin) {
		return ""
	}
	return bin
}

// Browser downloads and unpacks the pinned chromium snapshot into
// dataDir/browser and returns the binary path. A partial download is
// resumed rather than restarted.
func Browser(dataDir string) (string, error) {
	if bin := InstalledBrowser(dataDir); bin != "" {
		log.Println("Browser already installed:", bin)
		return bin, nil
	}

	folder, archive := snapshotName()
	url := fmt.Sprintf(
		"https://storage.googleapis.com/chromium-browser-snapshots/%v/%v/%v",
		folder, browserRevision, archive)

	dest := path.Join(dataDir, "browser")
	err := os.MkdirAll(dest, 0755)
	if err != nil {
		return "", fmt.Errorf("Error creating %v: %w", dest, err)
	}

	zipFile := path.Join(dest, archive)

	log.Println("Downloading browser:", url)

	client := grab.NewClient()
	req, err := grab.NewRequest(zipFile, url)
	if err != nil {
		return "", fmt.Errorf("Error creating download request: %w", err)
	}

	resp := client.Do(req)

	t := time.NewTicker(2 * time.Second)
	defer t.Stop()

loop:
	for {
		select {
		case <-t.C:
			fmt.Printf("%.02f%% complete, %.02f B/sec\n",
				resp.Progress()*100,
				resp.BytesPerSecond())

		case <-resp.Done:
			err := resp.Err()
			if err != nil {
				return "", fmt.Errorf("Error downloading browser: %w", err)
			}
			break loop
		}
	}

	log.Println("Unpacking browser ...")

	err = unzip(zipFile, dest)
	if err != nil {
		return "", fmt.Errorf("Error unpacking browser: %w", err)
	}

	err = os.Remove(zipFile)
	if err != nil {
		log.Println("Error removing browser archive:", err)
	}

	bin := BrowserBin(dataDir)
	if !file.Exists(bin) {
		return "", fmt.Errorf("Browser archive did not contain %v", bin)
	}

	return bin, nil
}

// unzip unpacks src into dest. File modes are kept so the browser
// binaries stay executable, and the mac archive's framework symlinks
// are recreated as links.
func unzip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	destClean := filepath.Clean(dest) + string(os.PathSeparator)

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)

		// reject entries that would land outside dest
		if !strings.HasPrefix(target, destClean) {
			return fmt.Errorf("Illegal path in archive: %v", f.Name)
		}

		if f.FileInfo().IsDir() {
			err := os.MkdirAll(target, f.Mode())
			if err != nil {
				return err
			}
			continue
		}

		err := os.MkdirAll(filepath.Dir(target), 0755)
		if err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}

		if f.Mode()&os.ModeSymlink != 0 {
			link, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return err
			}
			_ = os.Remove(target)
			err = os.Symlink(string(link), target)
			if err != nil {
				return err
			}
			continue
		}

		w, err := os.OpenFile(target,
			os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}

		_, err = io.Copy(w, rc)
		w.Close()
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}
