package automation

import (
	"fmt"
	"os"
	"path/filepath"
)

// Working-artifact kinds; each has its own subdirectory under the output root.
const (
	KindStories    = "stories"
	KindAudio      = "audio"
	KindVideo      = "video"
	KindThumbnails = "thumbnails"
	KindSubtitles  = "subtitles"
)

// ArtifactKinds lists every working-artifact directory, swept by the Cleaner.
var ArtifactKinds = []string{KindStories, KindAudio, KindVideo, KindThumbnails, KindSubtitles}

// Workspace is the on-disk layout for generated artifacts.
type Workspace struct {
	Root string
}

// Dir returns the directory for one artifact kind.
func (w Workspace) Dir(kind string) string {
	return filepath.Join(w.Root, kind)
}

// Dirs returns every artifact directory.
func (w Workspace) Dirs() []string {
	dirs := make([]string, 0, len(ArtifactKinds))
	for _, k := range ArtifactKinds {
		dirs = append(dirs, w.Dir(k))
	}
	return dirs
}

// Ensure creates all artifact directories.
func (w Workspace) Ensure() error {
	for _, dir := range w.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SessionPaths are the artifact files of one session. Every name carries the
// session id, so overlapping sessions never share a file.
type SessionPaths struct {
	Story     string
	Audio     string
	Thumbnail string
	Subtitles string
	Video     string
}

// SessionPaths returns the artifact paths for sessionID.
func (w Workspace) SessionPaths(sessionID string) SessionPaths {
	return SessionPaths{
		Story:     filepath.Join(w.Dir(KindStories), sessionID+".txt"),
		Audio:     filepath.Join(w.Dir(KindAudio), sessionID+".mp3"),
		Thumbnail: filepath.Join(w.Dir(KindThumbnails), sessionID+".png"),
		Subtitles: filepath.Join(w.Dir(KindSubtitles), sessionID+".srt"),
		Video:     filepath.Join(w.Dir(KindVideo), sessionID+".mp4"),
	}
}

// Temporary returns the files removed after a successful upload. The story
// text is kept; the retention cleaner ages it out.
func (p SessionPaths) Temporary() []string {
	return []string{p.Video, p.Thumbnail, p.Audio, p.Subtitles}
}
