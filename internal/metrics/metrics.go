package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and the ingest,
// analysis, and wizard pipelines. In-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	adsScrapedTotal    = make(map[string]int64)
	adsDuplicatesTotal = make(map[string]int64)
	adsSavedTotal      = make(map[string]int64)

	analysesTotal = make(map[analysisKey]int64)
	wizardTotal   = make(map[wizardKey]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type analysisKey struct {
	Backend string
	Kind    string
	Success string
}

type wizardKey struct {
	Mode    string
	Success string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordIngest counts the outcome of one scrape-dedup-store pass.
func RecordIngest(source string, scraped, duplicates, saved int) {
	mu.Lock()
	defer mu.Unlock()

	adsScrapedTotal[source] += int64(scraped)
	adsDuplicatesTotal[source] += int64(duplicates)
	adsSavedTotal[source] += int64(saved)
}

// RecordAnalysis increments analysis counters per backend and media kind.
func RecordAnalysis(backend, kind string, success bool) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	analysesTotal[analysisKey{Backend: backend, Kind: kind, Success: s}]++
}

// RecordWizard increments wizard generation counters per mode.
func RecordWizard(mode string, success bool) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	wizardTotal[wizardKey{Mode: mode, Success: s}]++
}

// Reset clears all counters. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	requestsTotal = make(map[reqKey]int64)
	latencyMsSum = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)
	adsScrapedTotal = make(map[string]int64)
	adsDuplicatesTotal = make(map[string]int64)
	adsSavedTotal = make(map[string]int64)
	analysesTotal = make(map[analysisKey]int64)
	wizardTotal = make(map[wizardKey]int64)
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP adtrend_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE adtrend_http_requests_total counter\n")

	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		fmt.Fprintf(&b, "adtrend_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, requestsTotal[k])
	}

	b.WriteString("# HELP adtrend_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE adtrend_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP adtrend_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE adtrend_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		fmt.Fprintf(&b, "adtrend_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "adtrend_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	writeSourceCounter := func(name, help string, values map[string]int64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)
		var keys []string
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s{source=\"%s\"} %d\n", name, k, values[k])
		}
	}

	writeSourceCounter("adtrend_ads_scraped_total", "Total raw ads returned by the provider", adsScrapedTotal)
	writeSourceCounter("adtrend_ads_duplicates_total", "Total ads skipped as duplicates", adsDuplicatesTotal)
	writeSourceCounter("adtrend_ads_saved_total", "Total new creative rows stored", adsSavedTotal)

	b.WriteString("# HELP adtrend_analyses_total Total media analysis calls\n")
	b.WriteString("# TYPE adtrend_analyses_total counter\n")

	var aKeys []analysisKey
	for k := range analysesTotal {
		aKeys = append(aKeys, k)
	}
	sort.Slice(aKeys, func(i, j int) bool {
		if aKeys[i].Backend != aKeys[j].Backend {
			return aKeys[i].Backend < aKeys[j].Backend
		}
		if aKeys[i].Kind != aKeys[j].Kind {
			return aKeys[i].Kind < aKeys[j].Kind
		}
		return aKeys[i].Success < aKeys[j].Success
	})

	for _, k := range aKeys {
		fmt.Fprintf(&b, "adtrend_analyses_total{backend=\"%s\",kind=\"%s\",success=\"%s\"} %d\n",
			k.Backend, k.Kind, k.Success, analysesTotal[k])
	}

	b.WriteString("# HELP adtrend_wizard_generations_total Total prompt wizard generations\n")
	b.WriteString("# TYPE adtrend_wizard_generations_total counter\n")

	var wKeys []wizardKey
	for k := range wizardTotal {
		wKeys = append(wKeys, k)
	}
	sort.Slice(wKeys, func(i, j int) bool {
		if wKeys[i].Mode != wKeys[j].Mode {
			return wKeys[i].Mode < wKeys[j].Mode
		}
		return wKeys[i].Success < wKeys[j].Success
	})

	for _, k := range wKeys {
		fmt.Fprintf(&b, "adtrend_wizard_generations_total{mode=\"%s\",success=\"%s\"} %d\n",
			k.Mode, k.Success, wizardTotal[k])
	}

	return b.String()
}
