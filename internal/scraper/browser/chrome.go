package browser

import "os"

var commonChromePaths = []string{
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/opt/google/chrome/chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
}

// chromePath returns the first existing browser binary, preferring the
// configured path and then CHROME_BIN / CHROME_PATH. Empty means rod
// downloads its own build.
func chromePath(configured string) string {
	candidates := append([]string{configured, os.Getenv("CHROME_BIN"), os.Getenv("CHROME_PATH")}, commonChromePaths...)
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
