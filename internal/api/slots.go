package api

import (
	"net/http"
	"time"

	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
)

func availableSlotsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}
		date, ok := dateQuery(w, r)
		if !ok {
			return
		}
		facilityID, ok := optionalUUIDQuery(w, r, "facility_id")
		if !ok {
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), providerID, date, facilityID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func daySlotsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}
		date, ok := dateQuery(w, r)
		if !ok {
			return
		}

		slots, err := svc.DaySlots(r.Context(), providerID, date)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func blockSlotHandler(svc SchedulingService, blocked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var (
			slot *scheduling.Slot
			err  error
		)
		if blocked {
			slot, err = svc.BlockSlot(r.Context(), id)
		} else {
			slot, err = svc.UnblockSlot(r.Context(), id)
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

// reserveHandler charges one booking without an appointment record.
func reserveHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}
		var req ReserveRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res := svc.Reserve(r.Context(), scheduling.ReserveRequest{
			ProviderID: providerID,
			At:         req.At.UTC(),
			FacilityID: req.FacilityID,
		})
		switch res.Status {
		case scheduling.Reserved:
			writeJSON(w, http.StatusCreated, toSlotResponse(*res.Slot))
		case scheduling.Unavailable:
			writeError(w, http.StatusConflict, "slot_unavailable", res.Reason)
		default:
			handleServiceError(w, r, res.Err)
		}
	}
}

func releaseHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "providerID")
		if !ok {
			return
		}
		at, err := time.Parse(time.RFC3339, r.URL.Query().Get("at"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "at: must be an RFC 3339 timestamp")
			return
		}

		if err := svc.Release(r.Context(), providerID, at.UTC()); err != nil {
			handleServiceError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
