package healthcheck

import (
	"errors"
	"fmt"
	"time"
)

type Resource string

const (
	ResourceDatabase Resource = "database"
	ResourceCache    Resource = "cache"
)

// ErrNilHandle is the cause recorded when a registry reports success but
// hands back no handle.
var ErrNilHandle = errors.New("registry returned no handle")

// ConnectivityFailure identifies which named resource could not be reached.
type ConnectivityFailure struct {
	Resource Resource
	Name     string
	Err      error
}

func (f *ConnectivityFailure) Error() string {
	return fmt.Sprintf("%s %q unreachable: %v", f.Resource, f.Name, f.Err)
}

func (f *ConnectivityFailure) Unwrap() error {
	return f.Err
}

// Result is the outcome of one probe. Err is nil or a *ConnectivityFailure.
type Result struct {
	Resource Resource
	Name     string
	Latency  time.Duration
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Report holds the outcome of both probes.
type Report struct {
	Database Result
	Cache    Result
}

func (r Report) Healthy() bool {
	return r.Database.OK() && r.Cache.OK()
}

// Failures returns the failed probes' errors, database first.
func (r Report) Failures() []error {
	var errs []error
	for _, res := range []Result{r.Database, r.Cache} {
		if !res.OK() {
			errs = append(errs, res.Err)
		}
	}
	return errs
}
