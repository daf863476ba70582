// Package report assembles an experiment's YAML report document: the
// treatment/response interaction statistics, load-generation summary, and
// per-container resource accounting. Ported from
// original_source/oxn/report.py's Reporter.
package report

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/nymphbox/oxn/internal/accountant"
	"github.com/nymphbox/oxn/internal/clock"
	"github.com/nymphbox/oxn/internal/loadgen"
	"github.com/nymphbox/oxn/internal/table"
	"gopkg.in/yaml.v3"
)

var errInsufficientSamples = errors.New("report: need at least two samples per group for welch's t-test")

// Interaction is one treatment/response pairing's computed statistics,
// mirroring _add_interaction_data's dict shape.
type Interaction struct {
	TreatmentName   string `yaml:"treatment_name"`
	TreatmentStart  string `yaml:"treatment_start"`
	TreatmentEnd    string `yaml:"treatment_end"`
	TreatmentType   string `yaml:"treatment_type"`
	ResponseName    string `yaml:"response_name"`
	ResponseStart   string `yaml:"response_start"`
	ResponseEnd     string `yaml:"response_end"`
	ResponseType    string `yaml:"response_type"`
	PValue          string `yaml:"p_value"`
	TestStatistic   string `yaml:"test_statistic"`
	TestPerformed   string `yaml:"test_performed"`
	StoreKey        string `yaml:"store_key"`
}

// LoadgenReport mirrors add_loadgen_data's report shape.
type LoadgenReport struct {
	LoadgenStartTime     string                  `yaml:"loadgen_start_time"`
	LoadgenEndTime       string                  `yaml:"loadgen_end_time"`
	LoadgenTotalRequests int                     `yaml:"loadgen_total_requests"`
	LoadgenTotalFailures int                     `yaml:"loadgen_total_failures"`
	TaskDetails          map[string]TaskDetail   `yaml:"task_details"`
}

// TaskDetail is one endpoint's load-generation summary.
type TaskDetail struct {
	URL                string  `yaml:"url"`
	Verb               string  `yaml:"verb"`
	Requests           int     `yaml:"requests"`
	Failures           int     `yaml:"failures"`
	FailRatio          float64 `yaml:"fail_ratio"`
	SumResponseTimeMS  float64 `yaml:"sum_response_time"`
	MinResponseTimeMS  float64 `yaml:"min_response_time"`
	MaxResponseTimeMS  float64 `yaml:"max_response_time"`
	AvgResponseTimeMS  float64 `yaml:"avg_response_time"`
	MedianResponseTimeMS float64 `yaml:"median_response_time"`
}

// AccountingEntry mirrors add_accountant_data's per-container shape.
type AccountingEntry struct {
	CPUSeconds   float64 `yaml:"cpu_seconds"`
	NumberOfCPUs int     `yaml:"number_of_cpus"`
}

// RunReport is one experiment run's section of the document.
type RunReport struct {
	Interactions map[string]Interaction     `yaml:"interactions,omitempty"`
	Loadgen      *LoadgenReport             `yaml:"loadgen,omitempty"`
	Accounting   map[string]AccountingEntry `yaml:"accounting,omitempty"`
}

// Document is the full `report: {...}` document, matching
// Reporter.report_data's top-level shape.
type Document struct {
	Report struct {
		ExperimentStart string               `yaml:"experiment_start,omitempty"`
		ExperimentEnd   string               `yaml:"experiment_end,omitempty"`
		ExperimentKey   string               `yaml:"experiment_key,omitempty"`
		Runs            map[string]RunReport `yaml:"runs"`
	} `yaml:"report"`
}

// Reporter accumulates interaction data for a single run before it is
// assembled into a report Document, mirroring Reporter's self.interactions
// staging list.
type Reporter struct {
	path         string
	doc          Document
	interactions []Interaction
}

// New builds a Reporter that will write to reportPath on DumpReportData.
func New(reportPath string) *Reporter {
	r := &Reporter{path: reportPath}
	r.doc.Report.Runs = make(map[string]RunReport)
	return r
}

// ComputeWelchTTest performs the two-sided Welch's t-test comparing rows
// labeled `label` in labelColumn against every other row, matching
// Reporter.compute_welch_ttest's H0-no-effect-via-class-means framing.
func ComputeWelchTTest(frame *table.Frame, label, labelColumn, valueColumn string) (statistic, pvalue, testName string, err error) {
	labels := frame.Column(labelColumn)
	values := frame.Float64Column(valueColumn)
	if labels == nil || values == nil {
		return "", "", "", fmt.Errorf("report: dataframe passed to welch ttest has wrong format")
	}

	var control, experiment []float64
	for i, l := range labels {
		lStr, _ := l.(string)
		if i >= len(values) {
			continue
		}
		if lStr == label {
			experiment = append(experiment, values[i])
		} else {
			control = append(control, values[i])
		}
	}

	stat, p, _, terr := welchTTest(control, experiment)
	if terr != nil {
		return "", "", "", fmt.Errorf("report: welch ttest: %w", terr)
	}
	return fmt.Sprintf("%v", stat), fmt.Sprintf("%v", p), "welch t-test", nil
}

// GatherInteraction computes and stages one treatment/response
// interaction, matching Reporter.gather_interaction.
func (r *Reporter) GatherInteraction(treatmentName, treatmentType string, treatmentStart, treatmentEnd float64, responseName, responseType string, responseStart, responseEnd float64, storeKey string, frame *table.Frame, labelColumn, valueColumn string) error {
	statistic, pvalue, testName, err := ComputeWelchTTest(frame, "NoTreatment", labelColumn, valueColumn)
	if err != nil {
		return err
	}
	r.interactions = append(r.interactions, Interaction{
		TreatmentName:  treatmentName,
		TreatmentStart: humanizeTimestamp(treatmentStart),
		TreatmentEnd:   humanizeTimestamp(treatmentEnd),
		TreatmentType:  treatmentType,
		ResponseName:   responseName,
		ResponseStart:  humanizeTimestamp(responseStart),
		ResponseEnd:    humanizeTimestamp(responseEnd),
		ResponseType:   responseType,
		PValue:         pvalue,
		TestStatistic:  statistic,
		TestPerformed:  testName,
		StoreKey:       storeKey,
	})
	return nil
}

func humanizeTimestamp(ts float64) string {
	return clock.Humanize(ts).Format("2006-01-02 15:04:05")
}

// AssembleInteractionData writes every gathered interaction under runKey,
// matching Reporter.assemble_interaction_data.
func (r *Reporter) AssembleInteractionData(runKey string) {
	run := r.doc.Report.Runs[runKey]
	run.Interactions = make(map[string]Interaction, len(r.interactions))
	for i, interaction := range r.interactions {
		run.Interactions[fmt.Sprintf("interaction_%d", i)] = interaction
	}
	r.doc.Report.Runs[runKey] = run
}

// AddExperimentData populates the document's top-level experiment fields,
// matching Reporter.add_experiment_data.
func (r *Reporter) AddExperimentData(experimentStart, experimentEnd float64, experimentKey string) {
	r.doc.Report.ExperimentStart = humanizeTimestamp(experimentStart)
	r.doc.Report.ExperimentEnd = humanizeTimestamp(experimentEnd)
	r.doc.Report.ExperimentKey = experimentKey
}

// AddLoadgenData records a run's load-generation summary, matching
// Reporter.add_loadgen_data.
func (r *Reporter) AddLoadgenData(runKey string, stats loadgen.Stats) {
	lr := &LoadgenReport{
		LoadgenStartTime:     stats.StartTime.UTC().Format("2006-01-02 15:04:05"),
		LoadgenEndTime:       stats.LastRequestTimestamp.UTC().Format("2006-01-02 15:04:05"),
		LoadgenTotalRequests: stats.NumRequests,
		LoadgenTotalFailures: stats.NumFailures,
		TaskDetails:          make(map[string]TaskDetail, len(stats.Entries)),
	}
	for i, e := range stats.Entries {
		taskID := fmt.Sprintf("task_%d", i)
		lr.TaskDetails[taskID] = TaskDetail{
			URL:                   e.Name,
			Verb:                  e.Verb,
			Requests:              e.NumRequests,
			Failures:              e.NumFailures,
			FailRatio:             e.FailRatio,
			SumResponseTimeMS:     float64(e.SumResponseTime.Milliseconds()),
			MinResponseTimeMS:     float64(e.MinResponseTime.Milliseconds()),
			MaxResponseTimeMS:     float64(e.MaxResponseTime.Milliseconds()),
			AvgResponseTimeMS:     float64(e.AvgResponseTime.Milliseconds()),
			MedianResponseTimeMS:  float64(e.MedianResponseTime.Milliseconds()),
		}
	}
	run := r.doc.Report.Runs[runKey]
	run.Loadgen = lr
	r.doc.Report.Runs[runKey] = run
}

// AddAccountantData records a run's resource-accounting data, matching
// Reporter.add_accountant_data.
func (r *Reporter) AddAccountantData(runKey string, consolidated map[string]accountant.Consolidated) {
	entries := make(map[string]AccountingEntry, len(consolidated))
	names := make([]string, 0, len(consolidated))
	for name := range consolidated {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := consolidated[name]
		entries[c.ContainerName] = AccountingEntry{CPUSeconds: c.TotalCPUUsage, NumberOfCPUs: c.NumberOfCPUs}
	}
	run := r.doc.Report.Runs[runKey]
	run.Accounting = entries
	r.doc.Report.Runs[runKey] = run
}

// DumpReportData writes the assembled document to the Reporter's path as
// YAML, matching Reporter.dump_report_data.
func (r *Reporter) DumpReportData() error {
	data, err := yaml.Marshal(r.doc)
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("report: write %s: %w", r.path, err)
	}
	return nil
}
