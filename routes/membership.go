package routes

import (
	"errors"

	"github.com/kataras/iris/v12"

	"github.com/rgglenn150/motoclub-connect-backend/models"
	"github.com/rgglenn150/motoclub-connect-backend/services"
	"github.com/rgglenn150/motoclub-connect-backend/storage"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
)

// GetMembershipStatus reports the caller's relationship to a club:
// admin, member, pending, or not-member.
func GetMembershipStatus(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")

	var clubCount int64
	if err := storage.DB.Model(&models.Club{}).Where("id = ?", clubID).Count(&clubCount).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if clubCount == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	member, err := services.VerifyMembership(storage.DB, user.ID, clubID)
	if err == nil {
		status := "member"
		if member.IsAdmin() {
			status = "admin"
		}
		ctx.JSON(iris.Map{"status": status, "membership": member})
		return
	}
	if !errors.Is(err, services.ErrNotAMember) {
		utils.CreateInternalServerError(ctx)
		return
	}

	var request models.JoinRequest
	result := storage.DB.
		Where("club_id = ? AND requester_id = ? AND status = ?", clubID, user.ID, models.JoinRequestPending).
		Limit(1).Find(&request)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected > 0 {
		ctx.JSON(iris.Map{"status": "pending", "joinRequest": &request})
		return
	}

	ctx.JSON(iris.Map{"status": "not-member"})
}

// ListMembers returns the club roster with each member's roles.
// Members and admins only.
func ListMembers(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")

	if _, err := services.VerifyMembership(storage.DB, user.ID, clubID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	var members []models.Member
	storage.DB.Where("club_id = ?", clubID).Preload("User").Order("joined_at ASC").Find(&members)

	ctx.JSON(iris.Map{"members": members})
}

// RemoveMember deletes a membership. Admin only; the club's last admin
// cannot be removed.
func RemoveMember(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")
	memberID := ctx.Params().Get("memberID")

	if _, err := services.VerifyAdmin(storage.DB, user.ID, clubID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	removed, err := services.RemoveMember(storage.DB, clubID, memberID)
	if err != nil {
		handleLedgerError(err, ctx)
		return
	}

	utils.Audit(ctx, "member.remove", "member", memberID, removed, nil)
	ctx.JSON(iris.Map{"success": true})
}

// PromoteMember grants the admin role. Admin only.
func PromoteMember(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")
	memberID := ctx.Params().Get("memberID")

	if _, err := services.VerifyAdmin(storage.DB, user.ID, clubID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	promoted, err := services.Promote(storage.DB, clubID, memberID)
	if err != nil {
		handleLedgerError(err, ctx)
		return
	}

	notifyRoleChange(clubID, user.ID, promoted.UserID, "promoted to admin")
	utils.Audit(ctx, "member.promote", "member", memberID, nil, promoted)
	ctx.JSON(iris.Map{"member": promoted})
}

// DemoteMember revokes the admin role. Admin only; self-demotion and
// demoting the last admin are refused.
func DemoteMember(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")
	memberID := ctx.Params().Get("memberID")

	if _, err := services.VerifyAdmin(storage.DB, user.ID, clubID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	demoted, err := services.Demote(storage.DB, clubID, memberID, user.ID)
	if err != nil {
		// Here ErrNotAdmin means the target is not an admin, not an
		// authorization failure.
		if errors.Is(err, services.ErrNotAdmin) {
			utils.CreateError(iris.StatusBadRequest, "Invalid Operation", "Member is not an admin.", ctx)
			return
		}
		handleLedgerError(err, ctx)
		return
	}

	notifyRoleChange(clubID, user.ID, demoted.UserID, "demoted to member")
	utils.Audit(ctx, "member.demote", "member", memberID, nil, demoted)
	ctx.JSON(iris.Map{"member": demoted})
}

// LeaveClub removes the caller's own membership, unless they are the club's
// last admin.
func LeaveClub(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")

	if _, err := services.Leave(storage.DB, clubID, user.ID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true})
}

func notifyRoleChange(clubID string, actorID, targetID uint, detail string) {
	var club models.Club
	storage.DB.Select("id, club_name").First(&club, "id = ?", clubID)
	services.Notifications.Enqueue(services.Event{
		Type:     models.NotificationRoleChange,
		ClubID:   clubID,
		ClubName: club.ClubName,
		ActorID:  actorID,
		TargetID: targetID,
		Detail:   detail,
	})
}

// handleLedgerError maps membership ledger errors to HTTP problems.
func handleLedgerError(err error, ctx iris.Context) {
	switch {
	case errors.Is(err, services.ErrClubNotFound), errors.Is(err, services.ErrMemberNotFound):
		utils.CreateNotFound(ctx)
	case errors.Is(err, services.ErrNotAMember):
		utils.CreateForbidden(ctx, "You are not a member of this club.")
	case errors.Is(err, services.ErrNotAdmin):
		utils.CreateForbidden(ctx, "Admin access required.")
	case errors.Is(err, services.ErrAlreadyAdmin):
		utils.CreateConflict(ctx, "Member is already an admin.")
	case errors.Is(err, services.ErrSelfDemotion):
		utils.CreateError(iris.StatusBadRequest, "Invalid Operation", "Admins cannot demote themselves.", ctx)
	case errors.Is(err, services.ErrLastAdmin):
		utils.CreateError(iris.StatusBadRequest, "Last Admin", "A club must keep at least one admin.", ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}
