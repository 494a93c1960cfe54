package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/provider-slot-scheduling/internal/appointment"
)

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointment.CreateInput
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return appointmentAction(svc.GetAppointment)
}

func confirmAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return appointmentAction(svc.ConfirmAppointment)
}

func completeAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return appointmentAction(svc.CompleteAppointment)
}

// appointmentAction adapts an id-only service call to a handler.
func appointmentAction(fn func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := fn(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req CancelRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id, req.Reason)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func rescheduleAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req appointment.RescheduleInput
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.RescheduleAppointment(r.Context(), id, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func updateStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		status := appointment.AppointmentStatus(req.Status)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "validation_error", "status: must be one of pending, confirmed, completed, cancelled")
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, status, req.Reason)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			f  appointment.ListFilter
			ok bool
		)
		if f.PatientID, ok = optionalUUIDQuery(w, r, "patient_id"); !ok {
			return
		}
		if f.ProviderID, ok = optionalUUIDQuery(w, r, "provider_id"); !ok {
			return
		}
		if f.SlotID, ok = optionalUUIDQuery(w, r, "slot_id"); !ok {
			return
		}
		if f.Limit, ok = intQuery(w, r, "limit"); !ok {
			return
		}
		if f.Offset, ok = intQuery(w, r, "offset"); !ok {
			return
		}
		if f.PatientID == nil && f.ProviderID == nil && f.SlotID == nil {
			writeError(w, http.StatusBadRequest, "validation_error", "one of patient_id, provider_id or slot_id is required")
			return
		}

		appts, err := svc.ListAppointments(r.Context(), f)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			resp = append(resp, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
