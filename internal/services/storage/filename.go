package storage

import (
	"errors"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"camwatch/internal/models"
)

var ErrInvalidFilename = errors.New("invalid snapshot filename")

// Labels are separated by '_' in file names, so '_' and '-' inside a label are
// percent-escaped and spaces become '-'.
var labelEscaper = strings.NewReplacer("%", "%25", "-", "%2D", "_", "%5F", " ", "-")

func escapeLabel(label string) string {
	return labelEscaper.Replace(label)
}

func unescapeLabel(s string) (string, error) {
	return url.PathUnescape(strings.ReplaceAll(s, "-", " "))
}

// ParseSnapshotFilename reads back a name written by the buffer:
// 2006-01-02_15-04-05.000_cam0_label1_label2_trace.jpg
func ParseSnapshotFilename(filename string) (models.Snapshot, error) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	parts := strings.Split(base, "_")

	// Format: [date, time.ms, camN, label..., trace]
	if len(parts) < 4 {
		return models.Snapshot{}, ErrInvalidFilename
	}

	ts, err := time.ParseInLocation(timestampLayout, parts[0]+"_"+parts[1], time.Local)
	if err != nil {
		return models.Snapshot{}, ErrInvalidFilename
	}

	if !strings.HasPrefix(parts[2], "cam") {
		return models.Snapshot{}, ErrInvalidFilename
	}
	cameraID, err := strconv.Atoi(strings.TrimPrefix(parts[2], "cam"))
	if err != nil {
		return models.Snapshot{}, ErrInvalidFilename
	}

	snap := models.Snapshot{
		Filename:  filepath.Base(filename),
		CameraID:  cameraID,
		Timestamp: ts,
		TraceID:   parts[len(parts)-1],
	}
	for _, part := range parts[3 : len(parts)-1] {
		label, err := unescapeLabel(part)
		if err != nil {
			return models.Snapshot{}, ErrInvalidFilename
		}
		snap.Detections = append(snap.Detections, models.Detection{
			ClassID: -1,
			Label:   label,
		})
	}
	return snap, nil
}
