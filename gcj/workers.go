package gcj

import "sync"

type loadJob struct {
	id   int32
	path string
}

type loadResult struct {
	id   int32
	unit *Unit
	err  error
}

// preload decodes the uncached units among ids on q.jobs workers and adds
// them to the cache. The first decode error in ids order is returned.
func (q *QueryRepository) preload(ids []int32) error {
	var jobs []loadJob
	for _, id := range ids {
		if _, ok := q.units[id]; ok || !q.index.units.Contains(id) {
			continue
		}
		jobs = append(jobs, loadJob{id: id, path: unitPath(q.dir, id)})
	}
	if len(jobs) == 0 {
		return nil
	}

	results := runLoadWorkers(jobs, q.jobs)
	var firstErr error
	for _, id := range ids {
		r, ok := results[id]
		if !ok {
			continue
		}
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		q.units[id] = r.unit
	}
	q.log.Debug("units preloaded", "count", len(jobs), "workers", min(q.jobs, len(jobs)))
	return firstErr
}

// Worker pool for unit decoding
func runLoadWorkers(jobs []loadJob, workers int) map[int32]loadResult {
	results := make(chan loadResult, 128)
	jobQueue := make(chan loadJob, 128)
	var wg sync.WaitGroup

	workerCount := workers
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(jobs) {
		workerCount = len(jobs)
	}

	worker := func() {
		defer wg.Done()
		for job := range jobQueue {
			u := NewUnit(job.id, "")
			err := loadRecord(job.path, u)
			results <- loadResult{id: job.id, unit: u, err: err}
		}
	}

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go worker()
	}

	go func() {
		for _, j := range jobs {
			jobQueue <- j
		}
		close(jobQueue)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	all := make(map[int32]loadResult, len(jobs))
	for r := range results {
		all[r.id] = r
	}
	return all
}
