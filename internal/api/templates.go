package api

import (
	"net/http"

	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
)

func upsertTemplateHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduling.TemplateInput
		if !decodeJSON(w, r, &req) {
			return
		}

		tmpl, err := svc.UpsertTemplate(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toTemplateResponse(*tmpl))
	}
}

func listTemplatesHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := optionalUUIDQuery(w, r, "provider_id")
		if !ok {
			return
		}

		templates, err := svc.ListTemplates(r.Context(), providerID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		resp := make([]TemplateResponse, 0, len(templates))
		for _, t := range templates {
			resp = append(resp, toTemplateResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteTemplateHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		if err := svc.DeleteTemplate(r.Context(), id); err != nil {
			handleServiceError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
