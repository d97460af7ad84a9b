package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/broker"
	"scribe/internal/daemon"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/testsupport"
	"scribe/internal/worker"
)

func startDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Workers.PollInterval = 10 * time.Millisecond
	cfg.Workers.ClaimRetryDelay = 10 * time.Millisecond
	cfg.Workers.StartupWaitSeconds = 5

	store := testsupport.MustOpenStore(t, cfg)
	b, err := broker.Open(cfg)
	if err != nil {
		t.Fatalf("open broker: %v", err)
	}

	p, err := pipeline.New(cfg, store, nil, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	factory, err := worker.NewBackendFactory(cfg)
	if err != nil {
		t.Fatalf("backend factory: %v", err)
	}
	pool, err := worker.NewPool(cfg, b, p, factory, nil)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	d, err := daemon.New(cfg, store, b, pool, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func apiURL(d *daemon.Daemon, path string) string {
	return "http://" + d.APIAddr() + path
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeJob(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var view map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return view
}

func waitForAPIStatus(t *testing.T, d *daemon.Daemon, jobID, want string, timeout time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(apiURL(d, "/api/jobs/"+jobID))
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		view := decodeJob(t, resp)
		if view["status"] == want {
			return view
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", jobID, want)
	return nil
}

func seedSidecarAudio(t *testing.T, text string) string {
	t.Helper()
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	testsupport.WriteFile(t, audio, []byte("wav"))
	testsupport.WriteFile(t, filepath.Join(dir, "clip.json"),
		[]byte(fmt.Sprintf(`{"segments":[{"start":0,"end":2,"text":%q,"confidence":0.9}]}`, text)))
	return audio
}

func TestSubmitAndFetchResultOverAPI(t *testing.T) {
	d := startDaemon(t)

	audio := seedSidecarAudio(t, "hello over the api")
	resp := postJSON(t, apiURL(d, "/api/jobs"), daemon.SubmitRequest{
		InputPath: audio,
		Options:   queue.DefaultOptions(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeJob(t, resp)
	jobID, _ := created["id"].(string)
	if jobID == "" {
		t.Fatalf("expected job id in response: %v", created)
	}

	waitForAPIStatus(t, d, jobID, "finished", 5*time.Second)

	resultResp, err := http.Get(apiURL(d, "/api/jobs/"+jobID+"/result"))
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	result := decodeJob(t, resultResp)
	if result["text"] == "" {
		t.Fatalf("expected transcript text, got %v", result)
	}

	artifactResp, err := http.Get(apiURL(d, "/api/jobs/"+jobID+"/artifact?format=srt"))
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	artifact := decodeJob(t, artifactResp)
	if artifact["path"] == "" {
		t.Fatalf("expected artifact path, got %v", artifact)
	}
}

func TestResultUnavailableBeforeFinish(t *testing.T) {
	d := startDaemon(t)

	resp := postJSON(t, apiURL(d, "/api/jobs"), daemon.SubmitRequest{
		InputPath: "/nonexistent/clip.wav",
		Options:   queue.DefaultOptions(),
	})
	created := decodeJob(t, resp)
	jobID := created["id"].(string)

	// The job fails permanently; the result endpoint should refuse.
	waitForAPIStatus(t, d, jobID, "failed", 5*time.Second)
	resultResp, err := http.Get(apiURL(d, "/api/jobs/"+jobID+"/result"))
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	defer resultResp.Body.Close()
	if resultResp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for unfinished job, got %d", resultResp.StatusCode)
	}
}

func TestRetryFailedJobOverAPI(t *testing.T) {
	d := startDaemon(t)

	resp := postJSON(t, apiURL(d, "/api/jobs"), daemon.SubmitRequest{
		InputPath: "/nonexistent/clip.wav",
		Options:   queue.DefaultOptions(),
	})
	created := decodeJob(t, resp)
	jobID := created["id"].(string)
	failed := waitForAPIStatus(t, d, jobID, "failed", 5*time.Second)
	if failed["error_message"] == "" {
		t.Fatalf("expected error message on failed job: %v", failed)
	}

	retryResp := postJSON(t, apiURL(d, "/api/jobs/"+jobID+"/retry"), struct{}{})
	if retryResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 retry, got %d", retryResp.StatusCode)
	}
	retried := decodeJob(t, retryResp)
	if retried["status"] != "pending" && retried["status"] != "processing" && retried["status"] != "failed" {
		t.Fatalf("unexpected post-retry status %v", retried["status"])
	}

	// Input is still missing, so the retry fails again.
	waitForAPIStatus(t, d, jobID, "failed", 5*time.Second)
}

func TestRetryRejectsNonFailedJob(t *testing.T) {
	d := startDaemon(t)

	audio := seedSidecarAudio(t, "finished fine")
	resp := postJSON(t, apiURL(d, "/api/jobs"), daemon.SubmitRequest{
		InputPath: audio,
		Options:   queue.DefaultOptions(),
	})
	created := decodeJob(t, resp)
	jobID := created["id"].(string)
	waitForAPIStatus(t, d, jobID, "finished", 5*time.Second)

	retryResp := postJSON(t, apiURL(d, "/api/jobs/"+jobID+"/retry"), struct{}{})
	defer retryResp.Body.Close()
	if retryResp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for finished job retry, got %d", retryResp.StatusCode)
	}
}

func TestStatusAndQueueEndpoints(t *testing.T) {
	d := startDaemon(t)

	audio := seedSidecarAudio(t, "queue visibility")
	resp := postJSON(t, apiURL(d, "/api/jobs"), daemon.SubmitRequest{
		InputPath: audio,
		Options:   queue.DefaultOptions(),
	})
	created := decodeJob(t, resp)
	waitForAPIStatus(t, d, created["id"].(string), "finished", 5*time.Second)

	statusResp, err := http.Get(apiURL(d, "/api/status"))
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	status := decodeJob(t, statusResp)
	if status["running"] != true {
		t.Fatalf("expected running daemon, got %v", status)
	}

	queueResp, err := http.Get(apiURL(d, "/api/queue?status=finished"))
	if err != nil {
		t.Fatalf("get queue: %v", err)
	}
	defer queueResp.Body.Close()
	var jobs []map[string]any
	if err := json.NewDecoder(queueResp.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 finished job, got %d", len(jobs))
	}
}

func TestSubmitValidatesInputPath(t *testing.T) {
	d := startDaemon(t)

	resp := postJSON(t, apiURL(d, "/api/jobs"), daemon.SubmitRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing input path, got %d", resp.StatusCode)
	}
}

func TestQueueClearEndpoint(t *testing.T) {
	d := startDaemon(t)

	audio := seedSidecarAudio(t, "clear me after finish")
	resp := postJSON(t, apiURL(d, "/api/jobs"), daemon.SubmitRequest{
		InputPath: audio,
		Options:   queue.DefaultOptions(),
	})
	created := decodeJob(t, resp)
	waitForAPIStatus(t, d, created["id"].(string), "finished", 5*time.Second)

	clearResp := postJSON(t, apiURL(d, "/api/queue/clear?scope=finished"), struct{}{})
	cleared := decodeJob(t, clearResp)
	if cleared["removed"].(float64) != 1 {
		t.Fatalf("expected 1 removed, got %v", cleared)
	}
}
