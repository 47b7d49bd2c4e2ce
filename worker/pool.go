package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"travel-insight/audit"
	"travel-insight/export"
	"travel-insight/report"
)

// FIFO queue and status maps
var (
	pendingJobs    = sync.Map{} // id => *Job
	processingJobs = sync.Map{} // id => *Result
	pendingMutex   = &sync.Mutex{}
	pendingOrder   = []string{}
)

// AddPendingJob enqueues a job at the tail of the FIFO queue.
func AddPendingJob(job *Job) {
	pendingJobs.Store(job.ID, job)
	processingJobs.Store(job.ID, &Result{Status: StatusWaiting, Owner: job.Caller.ID})
	pendingMutex.Lock()
	pendingOrder = append(pendingOrder, job.ID)
	pendingMutex.Unlock()
}

// NextPendingID pops the oldest queued job ID, or "" when the queue is empty.
func NextPendingID() string {
	pendingMutex.Lock()
	defer pendingMutex.Unlock()
	if len(pendingOrder) == 0 {
		return ""
	}
	nextID := pendingOrder[0]
	pendingOrder = pendingOrder[1:]
	return nextID
}

// Expose the maps for the status API
func PendingJobs() *sync.Map    { return &pendingJobs }
func ProcessingJobs() *sync.Map { return &processingJobs }

// StartWorkers launches num goroutines draining the FIFO queue.
func StartWorkers(num int, engine *report.Engine, exportDir string, logger *logrus.Logger, recorder *audit.Recorder) {
	for i := 0; i < num; i++ {
		go reportWorker(engine, exportDir, logger, recorder)
	}
}

// A worker handles one job at a time, as soon as one shows up in the queue.
func reportWorker(engine *report.Engine, exportDir string, logger *logrus.Logger, recorder *audit.Recorder) {
	for {
		nextID := NextPendingID()
		if nextID == "" {
			time.Sleep(300 * time.Millisecond)
			continue
		}
		v, ok := pendingJobs.LoadAndDelete(nextID)
		if !ok {
			continue
		}
		job := v.(*Job)
		processingJobs.Store(nextID, &Result{Status: StatusProcessing, Owner: job.Caller.ID})

		logger.WithFields(logrus.Fields{"id": nextID, "owner": job.Caller.ID}).Info("job started")

		result := processJob(job, engine, exportDir, logger, recorder)
		result.Owner = job.Caller.ID
		processingJobs.Store(nextID, result)
	}
}

// processJob runs the query through the engine, then renders every requested
// format from the same result so the exports stay data-equivalent.
func processJob(job *Job, engine *report.Engine, exportDir string, logger *logrus.Logger, recorder *audit.Recorder) *Result {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := engine.Execute(ctx, job.Config, job.Caller)
	if err != nil {
		logger.WithError(err).WithField("id", job.ID).Error("job failed")
		return &Result{Status: StatusError, ErrorMsg: publicError(err)}
	}

	if err := os.MkdirAll(exportDir, 0755); err != nil {
		logger.WithError(err).WithField("id", job.ID).Error("export dir")
		return &Result{Status: StatusError, ErrorMsg: "export directory unavailable"}
	}

	table := export.FromResult(job.Config.ReportType, res)
	paths := map[string]string{}
	for _, format := range job.Formats {
		path := filepath.Join(exportDir, job.ID+"."+format)
		if err := renderFormat(format, path, table); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{"id": job.ID, "format": format}).Error("export failed")
			return &Result{Status: StatusError, ErrorMsg: "export failed"}
		}
		paths[format] = path
	}

	recorder.Record(audit.Record{
		Category:    audit.CategoryExport,
		Actor:       job.Caller.ID,
		Description: "async report export",
		Details: audit.Redact(map[string]any{
			"job":     job.ID,
			"report":  job.Config.ReportType,
			"formats": job.Formats,
			"rows":    res.Meta.RowCount,
		}),
		Origin: job.Origin,
		Status: audit.StatusSuccess,
	})
	logger.WithFields(logrus.Fields{"id": job.ID, "rows": res.Meta.RowCount}).Info("job complete")
	return &Result{Status: StatusComplete, Rows: res.Meta.RowCount, Paths: paths}
}

func renderFormat(format, path string, table *export.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	switch format {
	case "xlsx":
		return export.WriteXLSX(f, table)
	case "doc":
		return export.WriteDocument(f, table, export.DocumentOptions{})
	default:
		return export.WriteCSV(f, table)
	}
}

// publicError keeps datastore internals out of client-visible messages.
func publicError(err error) string {
	if report.KindOf(err) == report.KindExecution {
		return "report execution failed"
	}
	return err.Error()
}
