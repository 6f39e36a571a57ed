package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/stream"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/app/extract"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// Stages reported through the progress callback, in order.
const (
	StageLog      = "log"
	StageNotes    = "notes"
	StageVideos   = "videos"
	StageSession  = "session"
	StageAnalysis = "analysis"

	TotalSteps = 5
)

const (
	defaultAnonymizedName = "anonymized.log"
	notesExt              = ".md"
)

var (
	ErrNoLog      = errors.New("job has no log file")
	ErrLogMissing = errors.New("log file not uploaded")
)

// Processor runs analysis jobs against uploaded blobs. Sessions and Series
// are optional.
type Processor struct {
	Blobs    ports.BlobStore
	Sessions ports.SessionStore
	Renderer ports.Renderer
	Notes    ports.NotesRenderer
	Series   ports.SeriesSink
	Redactor ports.LineTransformer
	Obs      ports.Observability
	PlotDir  string

	now   func() time.Time
	newID func() string
}

func (p *Processor) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now().UTC()
}

func (p *Processor) id() string {
	if p.newID != nil {
		return p.newID()
	}
	return uuid.NewString()
}

// Process runs every stage of j and reports progress after each one. The
// first failing stage ends the job; its error is in the result.
func (p *Processor) Process(ctx context.Context, j *domain.Job, progress ports.ProgressFunc) domain.JobResult {
	res := domain.JobResult{JobID: j.ID}
	step := 0
	report := func(stage string) {
		step++
		if progress != nil {
			progress(ports.Progress{JobID: j.ID, Stage: stage, Step: step, Total: TotalSteps})
		}
	}
	fail := func(stage string, err error) domain.JobResult {
		res.Err = fmt.Errorf("job %s %s: %w", j.ID, stage, err)
		return res
	}

	logFile, err := p.prepareLog(j)
	if err != nil {
		return fail(StageLog, err)
	}
	res.LogFile = logFile
	report(StageLog)

	html, err := p.renderNotes(j.Markdown)
	if err != nil {
		return fail(StageNotes, err)
	}
	res.MarkdownHTML = html
	report(StageNotes)

	videos := p.collectVideos(j)
	report(StageVideos)

	res.SessionID = p.id()
	if p.Sessions != nil {
		s := &domain.Session{
			ID:        res.SessionID,
			UserID:    j.UserID,
			LogFile:   logFile,
			Markdown:  j.Markdown,
			Videos:    videos,
			CreatedAt: p.clock(),
		}
		if err := p.Sessions.SaveSession(ctx, s); err != nil {
			return fail(StageSession, err)
		}
	}
	report(StageSession)

	if err := ctx.Err(); err != nil {
		return fail(StageAnalysis, err)
	}
	set, stats, err := p.extract(logFile)
	res.Stats = stats
	if err != nil {
		return fail(StageAnalysis, err)
	}
	if p.Renderer != nil {
		files, err := p.Renderer.Render(ctx, set, filepath.Join(p.PlotDir, res.SessionID))
		if err != nil {
			return fail(StageAnalysis, err)
		}
		res.PlotFiles = files
	}
	if p.Series != nil {
		if err := p.Series.WriteSeries(res.SessionID, set); err != nil {
			return fail(StageAnalysis, err)
		}
	}
	report(StageAnalysis)

	p.Obs.LogInfo("job_complete",
		ports.Field{Key: "job", Value: j.ID},
		ports.Field{Key: "session", Value: res.SessionID},
		ports.Field{Key: "plots", Value: len(res.PlotFiles)})
	return res
}

// prepareLog checks the upload and, for anonymized text logs, writes the
// redacted copy that replaces it for the rest of the job.
func (p *Processor) prepareLog(j *domain.Job) (string, error) {
	if j.LogFile == "" {
		return "", ErrNoLog
	}
	if !stream.Supported(j.LogFile) {
		return "", fmt.Errorf("%w: %s", stream.ErrUnsupportedFormat, j.LogFile)
	}
	if !p.Blobs.Exists(j.LogFile) {
		return "", fmt.Errorf("%w: %s", ErrLogMissing, j.LogFile)
	}
	if !j.Anonymize || !stream.IsText(j.LogFile) || p.Redactor == nil {
		return j.LogFile, nil
	}

	out := j.OutputName
	if out == "" || !stream.IsText(out) {
		out = defaultAnonymizedName
	}
	n, err := p.redact(j.LogFile, out)
	if err != nil {
		return "", err
	}
	p.Obs.IncCounter("flightlog_lines_redacted_total", float64(n))
	return out, nil
}

func (p *Processor) redact(src, dst string) (int, error) {
	in, err := p.Blobs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	pr, pw := io.Pipe()
	done := make(chan int, 1)
	go func() {
		n, err := p.Redactor.Transform(in, pw)
		done <- n
		pw.CloseWithError(err)
	}()

	if _, err := p.Blobs.Put(dst, pr); err != nil {
		_ = pr.CloseWithError(err)
		<-done
		return 0, fmt.Errorf("%s: %w", p.Redactor.Name(), err)
	}
	return <-done, nil
}

func (p *Processor) renderNotes(name string) (string, error) {
	if name == "" || p.Notes == nil || !strings.HasSuffix(name, notesExt) {
		return "", nil
	}
	rc, err := p.Blobs.Open(name)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	src, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return p.Notes.RenderNotes(src)
}

// collectVideos keeps the video names that were actually uploaded.
func (p *Processor) collectVideos(j *domain.Job) []string {
	var out []string
	for _, v := range j.Videos {
		if v == "" {
			continue
		}
		if !p.Blobs.Exists(v) {
			p.Obs.LogError("video_missing", fmt.Errorf("video %s not uploaded", v), ports.Field{Key: "job", Value: j.ID})
			continue
		}
		out = append(out, v)
	}
	return out
}

func (p *Processor) extract(name string) (*domain.SeriesSet, domain.ExtractStats, error) {
	rc, err := p.Blobs.Open(name)
	if err != nil {
		return nil, domain.ExtractStats{}, err
	}
	s, err := stream.OpenReader(name, rc)
	if err != nil {
		_ = rc.Close()
		return nil, domain.ExtractStats{}, err
	}
	defer s.Close()
	return extract.Run(s, extract.WithObservability(p.Obs))
}
