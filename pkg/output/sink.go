package output

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lintang-b-s/roadtrace/pkg/pipeline"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
)

// Sink writes result documents (and optionally KML) into a directory.
type Sink struct {
	dir        string
	kml        bool
	annotators []Annotator
	now        func() time.Time
	log        *zap.Logger
}

func NewSink(cfg util.OutputConfig, log *zap.Logger, annotators ...Annotator) *Sink {
	if len(annotators) == 0 {
		annotators = []Annotator{NewSpeedAnnotator()}
	}
	return &Sink{
		dir:        cfg.Dir,
		kml:        cfg.KML,
		annotators: annotators,
		now:        time.Now,
		log:        log,
	}
}

func (s *Sink) Document(res *pipeline.Result) Document {
	return NewDocument(res, s.now(), s.annotators...)
}

// Write stores the document of res as <name>.json (and <name>.kml) and returns the written paths.
func (s *Sink) Write(res *pipeline.Result) ([]string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "create output dir %s", s.dir)
	}
	doc := s.Document(res)
	name := baseName(res)

	jsonPath := filepath.Join(s.dir, name+".json")
	if err := writeAtomic(jsonPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}); err != nil {
		return nil, err
	}
	paths := []string{jsonPath}

	if s.kml {
		kmlPath := filepath.Join(s.dir, name+".kml")
		if err := writeAtomic(kmlPath, func(w io.Writer) error {
			return WriteKML(w, doc)
		}); err != nil {
			return paths, err
		}
		paths = append(paths, kmlPath)
	}

	s.log.Info("result written", zap.String("run_id", doc.RunID), zap.Strings("paths", paths),
		zap.Int("segments", len(doc.Segments)))
	return paths, nil
}

func baseName(res *pipeline.Result) string {
	if res.Source == "" {
		return res.RunID.String()
	}
	base := filepath.Base(res.Source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeAtomic(path string, fn func(w io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "create %s", tmp)
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		os.Remove(tmp)
		return util.WrapErrorf(err, util.ErrInternalServerError, "encode %s", path)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return util.WrapErrorf(err, util.ErrInternalServerError, "flush %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return util.WrapErrorf(err, util.ErrInternalServerError, "close %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "rename %s", tmp)
	}
	return nil
}
