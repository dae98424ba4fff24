package decoder

import (
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
)

// MP3Format decodes MPEG-1/2 Layer III files.
type MP3Format struct {
	base
}

func (f *MP3Format) Name() string {
	return "mp3"
}

func (f *MP3Format) Description() string {
	return "MPEG audio layer III"
}

func (f *MP3Format) Extensions() []string {
	return []string{"mp3"}
}

func (f *MP3Format) Decode(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return mp3.Decode(rc)
}

func init() {
	Register("mp3", func() Format {
		return &MP3Format{}
	})
}
