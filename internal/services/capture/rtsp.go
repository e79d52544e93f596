package capture

import (
	"github.com/aler9/gortsplib"
	"github.com/aler9/gortsplib/pkg/url"
)

// probeRTSP sends an OPTIONS request so unreachable cameras fail fast
// instead of blocking inside the OpenCV backend.
func probeRTSP(rtspURL string) error {
	u, err := url.Parse(rtspURL)
	if err != nil {
		return err
	}

	conn := gortsplib.Client{}

	err = conn.Start(u.Scheme, u.Host)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Options(u)
	return err
}
