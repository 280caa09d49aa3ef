package domain

import (
	"context"
	"time"
)

// RepairOrderTask is a task of a repair order, tagged with its inspection.
type RepairOrderTask struct {
	ID             string
	Name           string
	InspectionID   string
	InspectionName string
}

// RepairOrderResult is the normalized answer of a repair order lookup.
type RepairOrderResult struct {
	ROID         string
	RONumber     string
	CustomerName string
	Vehicle      *Vehicle
	Tasks        []RepairOrderTask
}

// InspectionGroup is the set of tasks of one inspection.
type InspectionGroup struct {
	ID    string
	Name  string
	Tasks []RepairOrderTask
}

// TasksByInspection groups the flat task list by inspection id, in order
// of first appearance.
func (r RepairOrderResult) TasksByInspection() []InspectionGroup {
	var groups []InspectionGroup
	index := map[string]int{}
	for _, task := range r.Tasks {
		i, ok := index[task.InspectionID]
		if !ok {
			i = len(groups)
			index[task.InspectionID] = i
			groups = append(groups, InspectionGroup{ID: task.InspectionID, Name: task.InspectionName})
		}
		groups[i].Tasks = append(groups[i].Tasks, task)
	}
	return groups
}

// RepairOrderLookup finds a repair order by number. It returns ErrNotFound
// or ErrNoToken for the expected failures.
type RepairOrderLookup interface {
	Lookup(ctx context.Context, shopID, roNumber string) (*RepairOrderResult, error)
}

// TokenStatus tells whether a shop can use the report flow.
type TokenStatus struct {
	HasToken bool
	ShopName string
}

// TokenStatusChecker reports the credential status of a shop.
type TokenStatusChecker interface {
	TokenStatus(ctx context.Context, shopID string) (TokenStatus, error)
}

// UploadStep is a named stage of an upload.
type UploadStep string

const (
	UploadPreparing UploadStep = "preparing"
	UploadUploading UploadStep = "uploading"
	UploadUpdating  UploadStep = "updating"
	UploadComplete  UploadStep = "complete"
	UploadError     UploadStep = "error"
)

var uploadPercent = map[UploadStep]int{
	UploadPreparing: 10,
	UploadUploading: 30,
	UploadUpdating:  80,
	UploadComplete:  100,
	UploadError:     0,
}

// UploadProgress is one progress notification.
type UploadProgress struct {
	Step    UploadStep
	Percent int
	Message string
}

// ProgressFor builds the notification of a step with its fixed percentage.
func ProgressFor(step UploadStep, message string) UploadProgress {
	return UploadProgress{Step: step, Percent: uploadPercent[step], Message: message}
}

// Terminal reports whether no more notifications follow.
func (p UploadProgress) Terminal() bool {
	return p.Step == UploadComplete || p.Step == UploadError
}

// UploadRequest carries the report and its routing identifiers.
type UploadRequest struct {
	ShopID       string
	ROID         string
	InspectionID string
	TaskID       string
	Filename     string
	Document     []byte
	Findings     string
}

// UploadResult describes an accepted upload.
type UploadResult struct {
	Location   string
	UploadedAt time.Time
}

// Uploader hands a report to the shop management system. progress may be
// nil.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest, progress func(UploadProgress)) (UploadResult, error)
}
