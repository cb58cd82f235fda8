package metrics

import (
	"strings"
	"testing"
)

func TestRecordRequestAndExport(t *testing.T) {
	Reset()
	// Record a single request and ensure it appears in the export.
	RecordRequest("GET", "/api/facebook-ads", 200, 42)

	out := Export()
	if !strings.Contains(out, "adtrend_http_requests_total{method=\"GET\",path=\"/api/facebook-ads\",status=\"200\"}") {
		t.Fatalf("expected HTTP request metric for GET /api/facebook-ads in export, got:\n%s", out)
	}
	if !strings.Contains(out, "adtrend_http_request_duration_ms_sum") || !strings.Contains(out, "adtrend_http_request_duration_ms_count") {
		t.Fatalf("expected latency metrics headers in export, got:\n%s", out)
	}
}

func TestRecordIngestMetrics(t *testing.T) {
	Reset()
	RecordIngest("apify", 3, 1, 3)
	RecordIngest("apify", 2, 2, 0)
	RecordIngest("mock", 3, 0, 4)

	out := Export()
	if !strings.Contains(out, "adtrend_ads_scraped_total{source=\"apify\"} 5") {
		t.Fatalf("expected accumulated scraped count for apify, got:\n%s", out)
	}
	if !strings.Contains(out, "adtrend_ads_duplicates_total{source=\"apify\"} 3") {
		t.Fatalf("expected accumulated duplicate count for apify, got:\n%s", out)
	}
	if !strings.Contains(out, "adtrend_ads_saved_total{source=\"mock\"} 4") {
		t.Fatalf("expected saved count for mock, got:\n%s", out)
	}
}

func TestRecordAnalysisAndWizardMetrics(t *testing.T) {
	Reset()
	RecordAnalysis("gemini", "video", true)
	RecordAnalysis("claude", "image", false)
	RecordWizard("page-scoped", true)

	out := Export()
	if !strings.Contains(out, "adtrend_analyses_total{backend=\"gemini\",kind=\"video\",success=\"true\"} 1") {
		t.Fatalf("expected gemini video analysis counter, got:\n%s", out)
	}
	if !strings.Contains(out, "adtrend_analyses_total{backend=\"claude\",kind=\"image\",success=\"false\"} 1") {
		t.Fatalf("expected failed claude analysis counter, got:\n%s", out)
	}
	if !strings.Contains(out, "adtrend_wizard_generations_total{mode=\"page-scoped\",success=\"true\"} 1") {
		t.Fatalf("expected wizard generation counter, got:\n%s", out)
	}
}
