package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/middlewares"
	"github.com/tablelink/restaurant-ops/services"
	"github.com/tablelink/restaurant-ops/utils"
)

type QRController struct {
	QR *services.QRService
}

func NewQRController(qr *services.QRService) *QRController {
	return &QRController{QR: qr}
}

// IssueForTable -> create (or return) the QR code of one table
func (qc *QRController) IssueForTable(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	tableID, err := strconv.Atoi(c.Param("table_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	qr, err := qc.QR.IssueForTable(identity, uint(tableID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "QR code issued", qr)
}

// IssueForAllTables -> issue codes for every table of the business
func (qc *QRController) IssueForAllTables(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	codes, err := qc.QR.IssueForAllTables(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "QR codes issued", codes)
}

// List -> the business's QR codes (admin sees all)
func (qc *QRController) List(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	codes, err := qc.QR.ListByBusiness(identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of QR codes", codes)
}

// Deactivate -> scanned tokens start failing until reactivated
func (qc *QRController) Deactivate(c *gin.Context) {
	qc.setActive(c, false, "QR code deactivated")
}

// Reactivate -> token accepts scans again
func (qc *QRController) Reactivate(c *gin.Context) {
	qc.setActive(c, true, "QR code reactivated")
}

func (qc *QRController) setActive(c *gin.Context, active bool, message string) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	qrID, err := strconv.Atoi(c.Param("qr_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	qr, err := qc.QR.SetActive(identity, uint(qrID), active)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, qr)
}

// Delete -> remove a QR code entirely
func (qc *QRController) Delete(c *gin.Context) {
	identity, ok := middlewares.IdentityFrom(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	qrID, err := strconv.Atoi(c.Param("qr_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := qc.QR.Delete(identity, uint(qrID)); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "QR code deleted", gin.H{"qr_id": qrID})
}
