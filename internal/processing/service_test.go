package processing

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/psu-lab/relatorio/internal/storage"
	"github.com/psu-lab/relatorio/pkg/models"
)

// MockSampler implements sampler.Sampler for testing
type MockSampler struct {
	mock.Mock
}

func (m *MockSampler) Sample(ctx context.Context, port string, duration time.Duration) (*models.Series, error) {
	args := m.Called(ctx, port, duration)
	return args.Get(0).(*models.Series), args.Error(1)
}

// MockPlotter implements plotter.Plotter for testing
type MockPlotter struct {
	mock.Mock
}

func (m *MockPlotter) Render(w io.Writer, series *models.Series, title string) error {
	args := m.Called(w, series, title)
	return args.Error(0)
}

func (m *MockPlotter) SaveImage(dir string, series *models.Series, title string) (string, func(), error) {
	args := m.Called(dir, series, title)
	return args.String(0), args.Get(1).(func()), args.Error(2)
}

func (m *MockPlotter) Show(series *models.Series, title string) (func(), error) {
	args := m.Called(series, title)
	return args.Get(0).(func()), args.Error(1)
}

// MockGenerator implements report.Generator for testing
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(meta models.Metadata, series *models.Series) (string, error) {
	args := m.Called(meta, series)
	return args.String(0), args.Error(1)
}

// MockArchive implements storage.ReportArchive for testing
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) EnsureBucket(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockArchive) UploadReport(ctx context.Context, key string, path string) error {
	args := m.Called(ctx, key, path)
	return args.Error(0)
}

func (m *MockArchive) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func testRun() *models.Run {
	return models.NewRun("/dev/ttyUSB0", models.Metadata{
		Name:         "Bench Supply 07",
		Manufacturer: "Acme Power",
		PartNumber:   "835-0042",
		SerialNumber: "SN123456",
		Model:        models.ModelPS835BDFG,
	})
}

func testSeries() *models.Series {
	s := models.NewSeries()
	s.Append(models.Sample{Time: 0, Voltage: 10})
	s.Append(models.Sample{Time: 30, Voltage: 12})
	return s
}

func noSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

func TestProcessRun(t *testing.T) {
	const reportPath = "out/Relatorio_20240307_140509.pdf"
	const title = "Voltage over Time (PS-835B, D, F & G)"

	tests := []struct {
		name      string
		withArch  bool
		showPlot  bool
		mockSetup func(*MockSampler, *MockPlotter, *MockGenerator, *MockArchive)
		check     func(*testing.T, *models.RunResult, error)
	}{
		{
			name:     "full run without archive",
			showPlot: true,
			mockSetup: func(ms *MockSampler, mp *MockPlotter, mg *MockGenerator, ma *MockArchive) {
				ms.On("Sample", mock.Anything, "/dev/ttyUSB0", 5400*time.Second).Return(testSeries(), nil)
				mp.On("Show", mock.AnythingOfType("*models.Series"), title).Return(func() {}, nil)
				mg.On("Generate", mock.MatchedBy(func(meta models.Metadata) bool {
					return meta.Observations == "all good" && meta.Name == "Bench Supply 07"
				}), mock.Anything).Return(reportPath, nil)
			},
			check: func(t *testing.T, res *models.RunResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, reportPath, res.ReportPath)
				assert.Equal(t, 2, res.Series.Len())
				assert.False(t, res.Interrupted)
				assert.Empty(t, res.ArchiveKey)
			},
		},
		{
			name:     "chart viewer failure is not fatal",
			showPlot: true,
			mockSetup: func(ms *MockSampler, mp *MockPlotter, mg *MockGenerator, ma *MockArchive) {
				ms.On("Sample", mock.Anything, mock.Anything, mock.Anything).Return(models.NewSeries(), nil)
				mp.On("Show", mock.Anything, title).Return(func() {}, errors.New("no display"))
				mg.On("Generate", mock.Anything, mock.Anything).Return(reportPath, nil)
			},
			check: func(t *testing.T, res *models.RunResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, 0, res.Series.Len())
				assert.Equal(t, reportPath, res.ReportPath)
			},
		},
		{
			name: "sampling failure produces no report",
			mockSetup: func(ms *MockSampler, mp *MockPlotter, mg *MockGenerator, ma *MockArchive) {
				ms.On("Sample", mock.Anything, mock.Anything, mock.Anything).Return(testSeries(), assert.AnError)
			},
			check: func(t *testing.T, res *models.RunResult, err error) {
				assert.ErrorIs(t, err, assert.AnError)
				assert.Nil(t, res)
			},
		},
		{
			name: "report failure propagates",
			mockSetup: func(ms *MockSampler, mp *MockPlotter, mg *MockGenerator, ma *MockArchive) {
				ms.On("Sample", mock.Anything, mock.Anything, mock.Anything).Return(testSeries(), nil)
				mg.On("Generate", mock.Anything, mock.Anything).Return("", assert.AnError)
			},
			check: func(t *testing.T, res *models.RunResult, err error) {
				assert.ErrorIs(t, err, assert.AnError)
				assert.Contains(t, err.Error(), "failed to generate report")
			},
		},
		{
			name:     "archived with share link",
			withArch: true,
			mockSetup: func(ms *MockSampler, mp *MockPlotter, mg *MockGenerator, ma *MockArchive) {
				ms.On("Sample", mock.Anything, mock.Anything, mock.Anything).Return(testSeries(), nil)
				mg.On("Generate", mock.Anything, mock.Anything).Return(reportPath, nil)
				ma.On("UploadReport", mock.Anything, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "reports/") && strings.HasSuffix(key, "/Relatorio_20240307_140509.pdf")
				}), reportPath).Return(nil)
				ma.On("GenerateDownloadURL", mock.Anything, mock.Anything).Return("https://example.com/report", nil)
			},
			check: func(t *testing.T, res *models.RunResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, storage.ReportKey(res.RunID, reportPath), res.ArchiveKey)
				assert.Equal(t, "https://example.com/report", res.ShareURL)
			},
		},
		{
			name:     "archive failure keeps local report",
			withArch: true,
			mockSetup: func(ms *MockSampler, mp *MockPlotter, mg *MockGenerator, ma *MockArchive) {
				ms.On("Sample", mock.Anything, mock.Anything, mock.Anything).Return(testSeries(), nil)
				mg.On("Generate", mock.Anything, mock.Anything).Return(reportPath, nil)
				ma.On("UploadReport", mock.Anything, mock.Anything, reportPath).Return(assert.AnError)
			},
			check: func(t *testing.T, res *models.RunResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, reportPath, res.ReportPath)
				assert.Empty(t, res.ArchiveKey)
				assert.Empty(t, res.ShareURL)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &MockSampler{}
			mp := &MockPlotter{}
			mg := &MockGenerator{}
			ma := &MockArchive{}
			tt.mockSetup(ms, mp, mg, ma)

			var archive storage.ReportArchive
			if tt.withArch {
				archive = ma
			}
			svc := NewProcessingService(ms, mp, mg, archive, tt.showPlot).(*processingService)
			svc.notify = noSignals

			res, err := svc.ProcessRun(context.Background(), testRun(), func() (string, error) {
				return "all good", nil
			})
			tt.check(t, res, err)

			ms.AssertExpectations(t)
			mp.AssertExpectations(t)
			mg.AssertExpectations(t)
			ma.AssertExpectations(t)
		})
	}
}

func TestProcessRun_InterruptStillReports(t *testing.T) {
	ms := &MockSampler{}
	mg := &MockGenerator{}

	ms.On("Sample", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(testSeries(), nil)
	mg.On("Generate", mock.Anything, mock.Anything).Return("Relatorio_20240307_140509.pdf", nil)

	svc := NewProcessingService(ms, &MockPlotter{}, mg, nil, false).(*processingService)
	svc.notify = func(ctx context.Context) (context.Context, context.CancelFunc) {
		sampleCtx, cancel := context.WithCancel(ctx)
		cancel() // the user pressed Ctrl+C
		return sampleCtx, cancel
	}

	res, err := svc.ProcessRun(context.Background(), testRun(), nil)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Equal(t, 2, res.Series.Len())
	assert.Equal(t, "Relatorio_20240307_140509.pdf", res.ReportPath)
	mg.AssertExpectations(t)
}

func TestProcessRun_ObservationsFailure(t *testing.T) {
	ms := &MockSampler{}
	ms.On("Sample", mock.Anything, mock.Anything, mock.Anything).Return(testSeries(), nil)

	svc := NewProcessingService(ms, &MockPlotter{}, &MockGenerator{}, nil, false).(*processingService)
	svc.notify = noSignals

	_, err := svc.ProcessRun(context.Background(), testRun(), func() (string, error) {
		return "", io.ErrUnexpectedEOF
	})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestProcessRun_ChartRemovedAfterReport(t *testing.T) {
	var steps []string

	ms := &MockSampler{}
	ms.On("Sample", mock.Anything, mock.Anything, mock.Anything).Return(testSeries(), nil)

	mp := &MockPlotter{}
	mp.On("Show", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { steps = append(steps, "show") }).
		Return(func() { steps = append(steps, "release") }, nil)

	mg := &MockGenerator{}
	mg.On("Generate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { steps = append(steps, "report") }).
		Return("Relatorio_20240307_140509.pdf", nil)

	svc := NewProcessingService(ms, mp, mg, nil, true).(*processingService)
	svc.notify = noSignals

	_, err := svc.ProcessRun(context.Background(), testRun(), func() (string, error) {
		steps = append(steps, "observations")
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"show", "observations", "report", "release"}, steps)
}
