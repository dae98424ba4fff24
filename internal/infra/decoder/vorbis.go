package decoder

import (
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/vorbis"
)

// VorbisFormat decodes Ogg Vorbis files.
type VorbisFormat struct {
	base
}

func (f *VorbisFormat) Name() string {
	return "vorbis"
}

func (f *VorbisFormat) Description() string {
	return "Ogg Vorbis"
}

func (f *VorbisFormat) Extensions() []string {
	return []string{"ogg", "oga"}
}

func (f *VorbisFormat) Decode(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return vorbis.Decode(rc)
}

func init() {
	Register("vorbis", func() Format {
		return &VorbisFormat{}
	})
}
