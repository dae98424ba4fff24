package decoder

import (
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
)

// FLACFormat decodes native FLAC files.
type FLACFormat struct {
	base
}

func (f *FLACFormat) Name() string {
	return "flac"
}

func (f *FLACFormat) Description() string {
	return "Free Lossless Audio Codec"
}

func (f *FLACFormat) Extensions() []string {
	return []string{"flac"}
}

func (f *FLACFormat) Decode(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return flac.Decode(rc)
}

func init() {
	Register("flac", func() Format {
		return &FLACFormat{}
	})
}
