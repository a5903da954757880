// Package codecdetect maps MP4 sample entries to codec names.
package codecdetect

import (
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec represents a codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP9     Codec = "vp9"
	CodecAAC     Codec = "aac"
	CodecUnknown Codec = "unknown"
)

// FromSampleEntry maps a sample entry box type such as "avc1" to a codec.
func FromSampleEntry(boxType string) Codec {
	switch boxType {
	case "avc1", "avc3":
		return CodecH264
	case "hvc1", "hev1":
		return CodecHEVC
	case "av01":
		return CodecAV1
	case "vp09":
		return CodecVP9
	case "mp4a":
		return CodecAAC
	default:
		return CodecUnknown
	}
}

// FromTrack returns the codec of the first recognised sample entry of a track.
func FromTrack(trak *mp4.TrakBox) Codec {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if codec := FromSampleEntry(child.Type()); codec != CodecUnknown {
			return codec
		}
	}
	return CodecUnknown
}

// DetectFromReader returns the codec of the first video track of an MP4 file.
// The reader is rewound afterwards.
func DetectFromReader(reader io.ReadSeeker) (Codec, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return CodecUnknown, fmt.Errorf("seek: %w", err)
	}

	moov := mp4File.Moov
	if mp4File.IsFragmented() && mp4File.Init != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return CodecUnknown, fmt.Errorf("no moov box found")
	}

	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		if codec := FromTrack(trak); codec != CodecUnknown {
			return codec, nil
		}
	}

	return CodecUnknown, fmt.Errorf("no video track found")
}
