package api

import (
	"encoding/json"
	"net/http"
)

func simulatorReportHandler(src ReportSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports := src.Report()

		resp := SimulatorResponse{
			Running:  src.Running(),
			Families: make([]FamilyResponse, 0, len(reports)),
		}
		for _, fr := range reports {
			resp.Families = append(resp.Families, FamilyResponse{
				Family: fr.Family,
				Ticks:  fr.Total,
				Acted:  fr.Acted,
				Gated:  fr.Gated,
				Idle:   fr.Idle,
				Errors: fr.Errors,
				AvgMs:  float64(fr.Avg.Microseconds()) / 1000,
				P95Ms:  float64(fr.P95.Microseconds()) / 1000,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
