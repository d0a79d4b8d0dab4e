package processing

import (
	"github.com/rs/zerolog"

	"github.com/five82/mousetrap/internal/annotation"
)

// LoadAnnotations reads an annotation CSV in either layout. A single-file
// CSV applies to every video; a multi-file CSV is looked up per video.
func LoadAnnotations(path string, logger zerolog.Logger) (AnnotationLookup, annotation.Form, error) {
	form, err := annotation.SniffFile(path)
	if err != nil {
		return nil, 0, err
	}

	if form == annotation.FormMulti {
		mapping, err := annotation.ReadMultiFile(path)
		if err != nil {
			return nil, form, err
		}
		logger.Info().Str("path", path).Int("videos", mapping.Len()).Msg("Loaded multi-file annotations")
		return mapping, form, nil
	}

	set, err := annotation.ReadSingleFile(path)
	if err != nil {
		return nil, form, err
	}
	logger.Info().Str("path", path).Int("subjects", set.Len()).Msg("Loaded single-file annotations")
	return StaticAnnotations{Set: set}, form, nil
}
