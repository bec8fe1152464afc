package export

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"os"
	"strings"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"

	"github.com/rowforge/rowforge/internal/errors"
)

// keyFilterFPR is the target false positive rate of run key filters.
const keyFilterFPR = 0.01

// KeyFilter is a compact membership filter over the identity keys of one
// exported run. Consumers probe it to skip downloading run artifacts that
// cannot contain a subject. It is built once per run and read-only after
// that; a probe may yield a false positive but never a false negative.
type KeyFilter struct {
	words     []uint64
	numBits   uint64
	numHashes uint64
	numKeys   uint64
}

// NewKeyFilter sizes a filter for the expected number of identity keys at the
// standard false positive rate.
func NewKeyFilter(expectedKeys int) *KeyFilter {
	if expectedKeys < 1 {
		expectedKeys = 1
	}
	n := float64(expectedKeys)
	m := math.Ceil(-n * math.Log(keyFilterFPR) / (math.Ln2 * math.Ln2))
	k := math.Ceil(m / n * math.Ln2)
	if m < 64 {
		m = 64
	}
	if k < 1 {
		k = 1
	}
	numWords := (uint64(m) + 63) / 64
	return &KeyFilter{
		words:     make([]uint64, numWords),
		numBits:   numWords * 64,
		numHashes: uint64(k),
	}
}

// Add inserts one identity key tuple.
func (kf *KeyFilter) Add(key []string) {
	h1, h2 := keyHash(key)
	for i := uint64(0); i < kf.numHashes; i++ {
		pos := (h1 + i*h2) % kf.numBits
		kf.words[pos/64] |= 1 << (pos % 64)
	}
	kf.numKeys++
}

// MayContain reports whether the key might be in the run. False means the
// run definitely does not contain the key.
func (kf *KeyFilter) MayContain(key []string) bool {
	h1, h2 := keyHash(key)
	for i := uint64(0); i < kf.numHashes; i++ {
		pos := (h1 + i*h2) % kf.numBits
		if kf.words[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// NumKeys returns the number of keys added.
func (kf *KeyFilter) NumKeys() uint64 { return kf.numKeys }

// keyHash hashes an identity tuple to the two murmur3 halves used for double
// hashing. The unit separator keeps ("a","bc") distinct from ("ab","c").
func keyHash(key []string) (uint64, uint64) {
	h := murmur3.New128()
	h.Write([]byte(strings.Join(key, "\x1f")))
	return h.Sum128()
}

// Encode serializes the filter as snappy-compressed, base64-encoded bytes:
// a 24-byte header (numBits, numHashes, numKeys as little-endian uint64)
// followed by the compressed word array.
func (kf *KeyFilter) Encode() string {
	words := make([]byte, len(kf.words)*8)
	for i, w := range kf.words {
		binary.LittleEndian.PutUint64(words[i*8:], w)
	}
	compressed := snappy.Encode(nil, words)

	buf := make([]byte, 24+len(compressed))
	binary.LittleEndian.PutUint64(buf[0:8], kf.numBits)
	binary.LittleEndian.PutUint64(buf[8:16], kf.numHashes)
	binary.LittleEndian.PutUint64(buf[16:24], kf.numKeys)
	copy(buf[24:], compressed)
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeKeyFilter reconstructs a filter from its encoded form.
func DecodeKeyFilter(encoded string) (*KeyFilter, error) {
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "key filter: invalid base64", err)
	}
	if len(buf) < 24 {
		return nil, errors.New(errors.CategoryExport, errors.CodeWriteFailed, "key filter: truncated header")
	}
	numBits := binary.LittleEndian.Uint64(buf[0:8])
	numHashes := binary.LittleEndian.Uint64(buf[8:16])
	numKeys := binary.LittleEndian.Uint64(buf[16:24])
	if numBits == 0 || numBits%64 != 0 || numHashes == 0 {
		return nil, errors.New(errors.CategoryExport, errors.CodeWriteFailed, "key filter: invalid parameters")
	}

	words64, err := snappy.Decode(nil, buf[24:])
	if err != nil {
		return nil, errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "key filter: decompress failed", err)
	}
	if uint64(len(words64)) != numBits/8 {
		return nil, errors.Newf(errors.CategoryExport, errors.CodeWriteFailed,
			"key filter: expected %d data bytes, got %d", numBits/8, len(words64))
	}
	words := make([]uint64, numBits/64)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(words64[i*8:])
	}
	return &KeyFilter{words: words, numBits: numBits, numHashes: numHashes, numKeys: numKeys}, nil
}

// WriteSidecar writes the encoded filter next to the run's data files.
func (kf *KeyFilter) WriteSidecar(path string) error {
	if err := os.WriteFile(path, []byte(kf.Encode()), 0o644); err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "write key filter sidecar", err)
	}
	return nil
}

// ReadSidecar loads and decodes a key filter sidecar file.
func ReadSidecar(path string) (*KeyFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed, "read key filter sidecar", err)
	}
	return DecodeKeyFilter(strings.TrimSpace(string(data)))
}
