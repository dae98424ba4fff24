package decoder

import (
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// WAVFormat decodes RIFF WAVE files with PCM or float samples.
type WAVFormat struct {
	base
}

func (f *WAVFormat) Name() string {
	return "wav"
}

func (f *WAVFormat) Description() string {
	return "RIFF WAVE (PCM)"
}

func (f *WAVFormat) Extensions() []string {
	return []string{"wav", "wave"}
}

func (f *WAVFormat) Decode(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return wav.Decode(rc)
}

func init() {
	Register("wav", func() Format {
		return &WAVFormat{}
	})
}
