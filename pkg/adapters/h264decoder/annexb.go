package h264decoder

var startCode = []byte{0, 0, 0, 1}

// avccToAnnexB converts AVCC format (length-prefixed NALUs) to Annex B format
// (start code prefixed). A truncated trailing NALU is dropped.
func avccToAnnexB(data []byte) []byte {
	result := make([]byte, 0, len(data)+16)
	offset := 0

	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if naluLen < 0 || offset+naluLen > len(data) {
			break
		}

		result = append(result, startCode...)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}

	return result
}

// parameterSetPrefix joins out-of-band parameter sets in Annex B format.
func parameterSetPrefix(sets [][]byte) []byte {
	var prefix []byte
	for _, nalu := range sets {
		prefix = append(prefix, startCode...)
		prefix = append(prefix, nalu...)
	}
	return prefix
}
