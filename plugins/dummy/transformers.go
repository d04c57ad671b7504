package dummy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xpingli/qiime2/pkg/format"
)

func transformIntSequenceToInts(in any) (any, error) {
	src, ok := in.(*IntSequenceFormat)
	if !ok {
		return nil, fmt.Errorf("expected *IntSequenceFormat input, got %T", in)
	}
	return src.ReadInts()
}

// transformIntSequenceToDirectory materializes the sequence into a fresh
// directory layout and returns a read-mode directory format over it.
func transformIntSequenceToDirectory(in any) (any, error) {
	src, ok := in.(*IntSequenceFormat)
	if !ok {
		return nil, fmt.Errorf("expected *IntSequenceFormat input, got %T", in)
	}
	values, err := src.ReadInts()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "dummy-intseq-dir-")
	if err != nil {
		return nil, err
	}
	inner, err := format.NewTextFileFormat(filepath.Join(dir, "ints.txt"), format.ModeWrite)
	if err != nil {
		return nil, err
	}
	out := &IntSequenceFormat{TextFileFormat: inner}
	if err := out.WriteInts(values); err != nil {
		return nil, err
	}

	dirBase, err := format.NewDirectoryFormat(dir, format.ModeRead)
	if err != nil {
		return nil, err
	}
	return &IntSequenceDirectoryFormat{DirectoryFormat: dirBase}, nil
}

// transformDirectoryToIntSequencePath returns the contained sequence file
// path; path results are a legal transformation outcome for format
// targets.
func transformDirectoryToIntSequencePath(in any) (any, error) {
	src, ok := in.(*IntSequenceDirectoryFormat)
	if !ok {
		return nil, fmt.Errorf("expected *IntSequenceDirectoryFormat input, got %T", in)
	}
	path := src.SequenceFile()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("directory format has no sequence file: %w", err)
	}
	return path, nil
}

func transformIntsToIntSequence(in any) (any, error) {
	values, ok := in.([]int)
	if !ok {
		return nil, fmt.Errorf("expected []int input, got %T", in)
	}
	dir, err := os.MkdirTemp("", "dummy-intseq-")
	if err != nil {
		return nil, err
	}
	inner, err := format.NewTextFileFormat(filepath.Join(dir, "ints.txt"), format.ModeWrite)
	if err != nil {
		return nil, err
	}
	out := &IntSequenceFormat{TextFileFormat: inner}
	if err := out.WriteInts(values); err != nil {
		return nil, err
	}
	return out, nil
}

func transformMappingToMap(in any) (any, error) {
	src, ok := in.(*MappingFormat)
	if !ok {
		return nil, fmt.Errorf("expected *MappingFormat input, got %T", in)
	}
	return src.ReadMapping()
}
