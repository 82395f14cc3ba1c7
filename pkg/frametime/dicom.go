package frametime

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// DICOM attributes read from PET image headers.
var (
	tagSeriesInstanceUID          = tag.Tag{Group: 0x0020, Element: 0x000E}
	tagSeriesTime                 = tag.Tag{Group: 0x0008, Element: 0x0031}
	tagAcquisitionTime            = tag.Tag{Group: 0x0008, Element: 0x0032}
	tagTemporalPositionIdentifier = tag.Tag{Group: 0x0020, Element: 0x0100}
	tagActualFrameDuration        = tag.Tag{Group: 0x0018, Element: 0x1242}
	tagFrameReferenceTime         = tag.Tag{Group: 0x0054, Element: 0x1300}
)

var errMissingTag = errors.New("missing attribute")

// FromDICOM reads the frame timing of a dynamic PET series from DICOM files
// and reconciles it with FromAcquisitions.
func FromDICOM(paths []string, opts Options) (*Table, error) {
	acqs, err := ReadDICOMHeaders(paths)
	if err != nil {
		return nil, err
	}
	return FromAcquisitions(acqs, opts)
}

// ReadDICOMHeaders extracts one HeaderFrame per time position from a set of
// DICOM image files. Files are grouped into acquisitions by series; slices
// that share a time position collapse into one frame.
//
// The frame index is the TemporalPositionIdentifier, the start is
// AcquisitionTime relative to SeriesTime and the duration is
// ActualFrameDuration. Without AcquisitionTime the start is derived from
// FrameReferenceTime, which is taken as the frame centre.
func ReadDICOMHeaders(paths []string) ([]Acquisition, error) {
	type series struct {
		acq    Acquisition
		frames map[int]HeaderFrame
		files  []string
	}
	bySeries := map[string]*series{}
	var order []string

	for _, p := range paths {
		ds, err := dicom.ParseFile(p, nil)
		if err != nil {
			return nil, &IOError{Op: "parse", Path: p, Err: err}
		}
		uid, err := stringValue(ds, tagSeriesInstanceUID)
		if err != nil {
			uid = filepath.Dir(p)
		}
		hf, err := headerFrame(ds)
		if err != nil {
			return nil, &DataError{Source: p, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
		}

		s, ok := bySeries[uid]
		if !ok {
			s = &series{frames: map[int]HeaderFrame{}}
			bySeries[uid] = s
			order = append(order, uid)
		}
		s.files = append(s.files, p)
		if prev, seen := s.frames[hf.Index]; seen && (prev.StartMS != hf.StartMS || prev.DurationMS != hf.DurationMS) {
			return nil, &DataError{Source: p, Err: fmt.Errorf("%w: time position %d has conflicting timing", ErrMalformed, hf.Index)}
		}
		s.frames[hf.Index] = hf
	}

	acqs := make([]Acquisition, 0, len(order))
	for _, uid := range order {
		s := bySeries[uid]
		s.acq.Source = seriesSource(s.files)
		for _, hf := range s.frames {
			s.acq.Frames = append(s.acq.Frames, hf)
		}
		sort.Slice(s.acq.Frames, func(i, j int) bool { return s.acq.Frames[i].Index < s.acq.Frames[j].Index })
		acqs = append(acqs, s.acq)
	}
	// series acquired first come first
	sort.SliceStable(acqs, func(i, j int) bool {
		return acqs[i].Frames[0].StartMS < acqs[j].Frames[0].StartMS
	})
	return acqs, nil
}

func seriesSource(files []string) string {
	if len(files) == 0 {
		return ""
	}
	return filepath.Base(filepath.Dir(files[0]))
}

func headerFrame(ds dicom.Dataset) (HeaderFrame, error) {
	var hf HeaderFrame

	idx, err := numericValue(ds, tagTemporalPositionIdentifier)
	if err != nil {
		return hf, fmt.Errorf("temporal position: %w", err)
	}
	hf.Index = int(idx)

	hf.DurationMS, err = numericValue(ds, tagActualFrameDuration)
	if err != nil {
		return hf, fmt.Errorf("frame duration: %w", err)
	}

	seriesTime, serr := stringValue(ds, tagSeriesTime)
	acqTime, aerr := stringValue(ds, tagAcquisitionTime)
	if serr == nil && aerr == nil {
		s, err := parseDICOMTime(seriesTime)
		if err != nil {
			return hf, fmt.Errorf("series time: %w", err)
		}
		a, err := parseDICOMTime(acqTime)
		if err != nil {
			return hf, fmt.Errorf("acquisition time: %w", err)
		}
		hf.StartMS = a - s
		return hf, nil
	}

	ref, err := numericValue(ds, tagFrameReferenceTime)
	if err != nil {
		return hf, fmt.Errorf("frame start: %w", err)
	}
	hf.StartMS = ref - hf.DurationMS/2
	return hf, nil
}

func stringValue(ds dicom.Dataset, t tag.Tag) (string, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return "", errMissingTag
	}
	if elem.Value.ValueType() != dicom.Strings {
		return "", fmt.Errorf("attribute %v is not a string", t)
	}
	vals := dicom.MustGetStrings(elem.Value)
	if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return "", errMissingTag
	}
	return strings.TrimSpace(vals[0]), nil
}

// numericValue reads IS/DS attributes (stored as strings) as well as binary
// integer and float attributes.
func numericValue(ds dicom.Dataset, t tag.Tag) (float64, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, errMissingTag
	}
	switch elem.Value.ValueType() {
	case dicom.Ints:
		if v := dicom.MustGetInts(elem.Value); len(v) > 0 {
			return float64(v[0]), nil
		}
	case dicom.Floats:
		if v := dicom.MustGetFloats(elem.Value); len(v) > 0 {
			return v[0], nil
		}
	case dicom.Strings:
		if v := dicom.MustGetStrings(elem.Value); len(v) > 0 {
			return strconv.ParseFloat(strings.TrimSpace(v[0]), 64)
		}
	}
	return 0, errMissingTag
}

// parseDICOMTime converts a TM value (HHMMSS.FFFFFF, optionally with
// colons) to milliseconds since midnight.
func parseDICOMTime(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	if len(s) < 2 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	frac := 0.0
	if i := strings.IndexByte(s, '.'); i >= 0 {
		f, err := strconv.ParseFloat("0"+s[i:], 64)
		if err != nil {
			return 0, fmt.Errorf("bad time %q", s)
		}
		frac = f
		s = s[:i]
	}
	parts := []int{0, 0, 0}
	for i := 0; i < 3 && len(s) >= 2*(i+1); i++ {
		v, err := strconv.Atoi(s[2*i : 2*i+2])
		if err != nil {
			return 0, fmt.Errorf("bad time %q", s)
		}
		parts[i] = v
	}
	secs := float64(parts[0]*3600+parts[1]*60+parts[2]) + frac
	return secs * 1000, nil
}
