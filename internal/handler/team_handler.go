package handler

import (
	"net/http"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Team — GET /v1/team/members
// ============================================================

func listMembersHandler(teamSvc *service.TeamService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/team/members")
		defer span.End()

		if teamSvc == nil {
			unavailable(w, "team")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		members, err := teamSvc.ListMembers(ctx, actor)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, members)
	}
}

// ============================================================
// Team — POST /v1/team/invites
// ============================================================

func inviteMemberHandler(teamSvc *service.TeamService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/team/invites")
		defer span.End()

		if teamSvc == nil {
			unavailable(w, "team")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req domain.InviteMemberRequest
		if !decodeBody(w, r, &req) {
			return
		}

		member, err := teamSvc.Invite(ctx, actor, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, member)
	}
}

// ============================================================
// Team — PUT /v1/team/members/{memberID}/permissions
// ============================================================

func updatePermissionsHandler(teamSvc *service.TeamService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/team/members/{memberID}/permissions")
		defer span.End()

		if teamSvc == nil {
			unavailable(w, "team")
			return
		}
		actor, ok := actorFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req domain.UpdatePermissionsRequest
		if !decodeBody(w, r, &req) {
			return
		}

		member, err := teamSvc.UpdatePermissions(ctx, actor, chi.URLParam(r, "memberID"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, member)
	}
}
