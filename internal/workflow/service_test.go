package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"dca-automation/internal/models"
	"dca-automation/internal/scheduler"
)

type fakePublisher struct {
	calls  int
	failOn int // 1-based call index to fail on, 0 = never
}

func (f *fakePublisher) Put(_ context.Context, name string, payload []byte) (models.ContentRef, error) {
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return models.ContentRef{}, errors.New("gateway unreachable")
	}
	return models.ContentRef{CID: "bafy-" + name, URL: "https://ipfs.io/ipfs/bafy-" + name}, nil
}

type fakeRegistrar struct {
	calls int
	fail  bool
	got   scheduler.RegisterParams
}

func (f *fakeRegistrar) Register(_ context.Context, p scheduler.RegisterParams) (scheduler.Registration, error) {
	f.calls++
	f.got = p
	if f.fail {
		return scheduler.Registration{}, errors.New("scheduler rejected the job")
	}
	return scheduler.Registration{JobID: "job-42", Raw: map[string]any{"job_id": "job-42", "status": "registered"}}, nil
}

type fakeLinkage struct {
	calls int
	fail  bool
	jobID string
	link  string
}

func (f *fakeLinkage) UpdateLinkage(_ context.Context, planID, jobID, ipfsLink string) error {
	f.calls++
	f.jobID = jobID
	f.link = ipfsLink
	if f.fail {
		return errors.New("plan store timeout")
	}
	return nil
}

func planRequest() models.PlanRequest {
	return models.PlanRequest{
		PlanID:          "p1",
		UserAddress:     "0x" + strings.Repeat("1", 40),
		FromToken:       "USDC",
		ToToken:         "ETH",
		Amount:          "100.50",
		IntervalMinutes: 1440,
		DurationWeeks:   4,
		Slippage:        "2.0",
		CreatedAt:       "2024-01-01T00:00:00Z",
	}
}

const signer = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"

func TestCreate_Live(t *testing.T) {
	pub := &fakePublisher{}
	reg := &fakeRegistrar{}
	links := &fakeLinkage{}
	svc := New(pub, reg, links, nil, zap.NewNop())

	res, err := svc.Create(context.Background(), planRequest(), signer)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if res.Mode != models.ModeLive {
		t.Errorf("mode = %s", res.Mode)
	}
	if res.JobID != "job-42" {
		t.Errorf("job id = %q", res.JobID)
	}
	if res.Warning != "" {
		t.Errorf("unexpected warning %q", res.Warning)
	}
	if res.Executions != 28 {
		t.Errorf("executions = %d, want 28", res.Executions)
	}
	if pub.calls != 2 {
		t.Errorf("expected script and metadata uploads, got %d", pub.calls)
	}
	if reg.got.OwnerAddress != planRequest().UserAddress {
		t.Errorf("registration owner = %q", reg.got.OwnerAddress)
	}
	if links.jobID != "job-42" || !strings.Contains(links.link, "p1-dca-script") {
		t.Errorf("linkage got job=%q link=%q", links.jobID, links.link)
	}
}

func TestCreate_Simulated(t *testing.T) {
	pub := &fakePublisher{failOn: 1} // real publisher must never be touched
	reg := &fakeRegistrar{}
	links := &fakeLinkage{}
	svc := New(pub, reg, links, nil, zap.NewNop())

	res, err := svc.Create(context.Background(), planRequest(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if res.Mode != models.ModeSimulated {
		t.Errorf("mode = %s", res.Mode)
	}
	if pub.calls != 0 {
		t.Error("simulated mode performed real publication I/O")
	}
	if reg.calls != 0 {
		t.Error("simulated mode called the scheduler")
	}
	if res.JobID == "" || !strings.Contains(res.JobID, "p1") {
		t.Errorf("simulated job id = %q", res.JobID)
	}
	if !strings.HasPrefix(res.ScriptRef.CID, "sim-") {
		t.Errorf("script ref = %q", res.ScriptRef.CID)
	}
	if res.Warning == "" {
		t.Error("simulated run must carry a warning")
	}
	if links.calls != 1 {
		t.Error("linkage update must still run in simulated mode")
	}
}

func TestCreate_PublishFailureAbortsBeforeRegistration(t *testing.T) {
	pub := &fakePublisher{failOn: 1}
	reg := &fakeRegistrar{}
	links := &fakeLinkage{}
	svc := New(pub, reg, links, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), planRequest(), signer)
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Op != "publish script" {
		t.Errorf("op = %q", upErr.Op)
	}
	if reg.calls != 0 {
		t.Error("registration ran after a publish failure")
	}
	if links.calls != 0 {
		t.Error("linkage ran after a publish failure")
	}
}

func TestCreate_MetadataPublishFailure(t *testing.T) {
	pub := &fakePublisher{failOn: 2}
	reg := &fakeRegistrar{}
	svc := New(pub, reg, &fakeLinkage{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), planRequest(), signer)
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Op != "publish metadata" {
		t.Fatalf("expected metadata publish error, got %v", err)
	}
	if reg.calls != 0 {
		t.Error("registration ran after a publish failure")
	}
}

func TestCreate_RegistrationFailureAbortsBeforeLinkage(t *testing.T) {
	reg := &fakeRegistrar{fail: true}
	links := &fakeLinkage{}
	svc := New(&fakePublisher{}, reg, links, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), planRequest(), signer)
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Op != "register job" {
		t.Fatalf("expected registration error, got %v", err)
	}
	if links.calls != 0 {
		t.Error("linkage ran after a registration failure")
	}
}

func TestCreate_LinkageFailureIsWarningOnly(t *testing.T) {
	links := &fakeLinkage{fail: true}
	svc := New(&fakePublisher{}, &fakeRegistrar{}, links, nil, zap.NewNop())

	res, err := svc.Create(context.Background(), planRequest(), signer)
	if err != nil {
		t.Fatalf("linkage failure must not fail the run: %v", err)
	}
	if res.JobID != "job-42" {
		t.Errorf("job id = %q", res.JobID)
	}
	if !strings.Contains(res.Warning, "linkage") {
		t.Errorf("warning = %q", res.Warning)
	}
}

func TestCreate_ZeroExecutionsFailsSimulatedToo(t *testing.T) {
	req := planRequest()
	req.DurationWeeks = 1
	req.IntervalMinutes = 100000

	svc := New(&fakePublisher{}, &fakeRegistrar{}, &fakeLinkage{}, nil, zap.NewNop())
	_, err := svc.Create(context.Background(), req, "")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Op != "register job" {
		t.Fatalf("expected registration rejection, got %v", err)
	}
}

func TestSelectMode(t *testing.T) {
	if SelectMode("") != models.ModeSimulated {
		t.Error("missing signer should select simulated mode")
	}
	if SelectMode(signer) != models.ModeLive {
		t.Error("present signer should select live mode")
	}
}
