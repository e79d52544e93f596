package poller

import (
	"context"
	"fmt"

	"camwatch/internal/models"
)

// Scan probes local device indices [0, maxIndex) and returns a registration
// for every index that opens. Handles are released before returning.
func Scan(ctx context.Context, open Opener, maxIndex int) []models.Camera {
	var found []models.Camera

	for i := 0; i < maxIndex; i++ {
		if ctx.Err() != nil {
			break
		}

		src := models.Source{ID: i, Name: fmt.Sprintf("Camera %d", i)}
		dev, err := open(ctx, src)
		if err != nil {
			continue
		}

		w, h := dev.Resolution()
		found = append(found, models.Camera{
			ID:      i,
			Name:    src.Name,
			Width:   w,
			Height:  h,
			FPSHint: dev.FPS(),
			Online:  true,
			State:   models.StateConnected,
		})
		dev.Close()
	}

	return found
}

// Sources converts scanned registrations back into sources.
func Sources(cams []models.Camera) []models.Source {
	out := make([]models.Source, 0, len(cams))
	for _, c := range cams {
		out = append(out, models.Source{ID: c.ID, Name: c.Name})
	}
	return out
}
