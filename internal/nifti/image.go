package nifti

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// Image is a decoded single-file NIfTI-1 image.
type Image struct {
	Header    Header
	ByteOrder binary.ByteOrder

	// Data holds the stored (unscaled) voxel values in file order, x fastest.
	Data []float64

	// Extension is everything between the header and vox_offset, starting
	// with the 4-byte extension flag. Nil means no extensions.
	Extension []byte
}

// Shape returns the image dimensions.
func (img *Image) Shape() []int {
	return img.Header.Shape()
}

// Affine returns the voxel to world transform.
func (img *Image) Affine() Affine {
	return img.Header.Affine()
}

// ScaledData applies scl_slope and scl_inter the way nibabel's get_fdata
// does; a zero slope means no scaling.
func (img *Image) ScaledData() []float64 {
	slope, inter := float64(img.Header.SclSlope), float64(img.Header.SclInter)
	if slope == 0 || (slope == 1 && inter == 0) {
		return img.Data
	}
	out := make([]float64, len(img.Data))
	for i, v := range img.Data {
		out[i] = slope*v + inter
	}
	return out
}

// At returns the voxel at the given index (x, y, z, t, ...).
func (img *Image) At(idx ...int) (float64, error) {
	shape := img.Shape()
	if len(idx) != len(shape) {
		return 0, fmt.Errorf("nifti: index has %d dimensions, image has %d", len(idx), len(shape))
	}
	offset, stride := 0, 1
	for i, n := range shape {
		if idx[i] < 0 || idx[i] >= n {
			return 0, fmt.Errorf("nifti: index %d out of range [0, %d) on axis %d", idx[i], n, i)
		}
		offset += idx[i] * stride
		stride *= n
	}
	return img.Data[offset], nil
}

// IsGzip reports whether b starts with the gzip magic number.
func IsGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

// readBytes returns the contents of a file, inflating gzip content.
func readBytes(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !IsGzip(content) {
		return content, nil
	}

	g, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer g.Close()

	inflated, err := io.ReadAll(g)
	if err != nil {
		return nil, fmt.Errorf("inflating %s: %w", path, err)
	}
	return inflated, nil
}

// ReadHeader reads only the header of a .nii or .nii.gz file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, _ := br.Peek(2); IsGzip(magic) {
		g, err := gzip.NewReader(br)
		if err != nil {
			return Header{}, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer g.Close()
		r = g
	}

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, fmt.Errorf("reading header of %s: %w", path, err)
	}
	h, _, err := readHeader(buf)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Load reads a .nii or .nii.gz file. Compression is detected from the
// content, not the file name.
func Load(path string) (*Image, error) {
	b, err := readBytes(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode parses an uncompressed single-file image.
func Decode(b []byte) (*Image, error) {
	h, order, err := readHeader(b)
	if err != nil {
		return nil, err
	}

	offset := int(h.VoxOffset)
	if offset < minVoxOffset {
		offset = minVoxOffset
	}
	if offset > len(b) {
		return nil, fmt.Errorf("nifti: vox_offset %d beyond end of file (%d bytes)", offset, len(b))
	}

	dt := datatypes[h.Datatype]
	// Bound the voxel count by the bytes present so the size cannot
	// overflow.
	avail := (len(b) - offset) / dt.size
	n := 1
	for _, d := range h.Shape() {
		n *= d
		if n > avail {
			return nil, fmt.Errorf("nifti: file has %d bytes, shape %v needs more: %w", len(b), h.Shape(), io.ErrUnexpectedEOF)
		}
	}
	need := offset + n*dt.size

	img := &Image{Header: h, ByteOrder: order, Data: make([]float64, n)}
	if ext := b[HeaderSize:offset]; len(ext) >= 4 && ext[0] != 0 {
		img.Extension = append([]byte(nil), ext...)
	}

	raw := b[offset:need]
	for i := range img.Data {
		img.Data[i] = dt.decode(raw[i*dt.size:], order)
	}
	return img, nil
}

// Encode serializes the image as an uncompressed single-file image.
// vox_offset is recomputed from the extension length.
func (img *Image) Encode(w io.Writer) error {
	h := img.Header
	h.SizeOfHdr = HeaderSize
	h.Magic = magicSingleFile

	dt, ok := datatypes[h.Datatype]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedDatatype, h.Datatype)
	}
	if got, want := len(img.Data), h.NumVoxels(); got != want {
		return fmt.Errorf("nifti: %d data values for a shape holding %d voxels", got, want)
	}

	ext := img.Extension
	if len(ext) < 4 {
		ext = []byte{0, 0, 0, 0}
	}
	h.VoxOffset = float32(HeaderSize + len(ext))

	order := img.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, order, &h); err != nil {
		return fmt.Errorf("nifti: writing header: %w", err)
	}
	if _, err := bw.Write(ext); err != nil {
		return fmt.Errorf("nifti: writing extensions: %w", err)
	}

	buf := make([]byte, dt.size)
	for _, v := range img.Data {
		dt.encode(buf, order, v)
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("nifti: writing data: %w", err)
		}
	}
	return bw.Flush()
}

// Save writes the image to path, gzip-compressed when path ends in ".gz".
func Save(img *Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	var w io.Writer = f
	var g *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		g = gzip.NewWriter(f)
		w = g
	}

	if err := img.Encode(w); err != nil {
		f.Close()
		return err
	}
	if g != nil {
		if err := g.Close(); err != nil {
			f.Close()
			return fmt.Errorf("closing gzip stream: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// Compress gzips a ".nii" file to ".nii.gz" next to it and returns the
// new path. The bytes are copied unchanged after the header is checked. An
// existing destination is never overwritten (the error wraps
// fs.ErrExist). The source is deleted when removeSrc is true.
func Compress(path string, removeSrc bool) (string, error) {
	if !strings.HasSuffix(path, ".nii") {
		return "", fmt.Errorf("nifti: %s is not an uncompressed .nii file", path)
	}
	if _, err := ReadHeader(path); err != nil {
		return "", err
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	dst := path + ".gz"
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}

	g := gzip.NewWriter(out)
	if _, err = io.Copy(g, src); err == nil {
		err = g.Close()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("compressing %s: %w", path, err)
	}

	if removeSrc {
		if err := os.Remove(path); err != nil {
			return dst, fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return dst, nil
}
