// Package services – QRService
//
// This file implements the vehicle QR payload: a deep link into the survey
// of one vehicle, rendered as a PNG for a single vehicle or as a ZIP of
// PNGs for a selection.
package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/repo"
)

// QR selection modes.
const (
	QRAll    = "all"
	QRSingle = "single"
	QRRange  = "range"
)

const qrSize = 256

// QRService renders vehicle QR codes.
type QRService struct {
	DB *gorm.DB
	// PublicBaseURL is the absolute origin riders reach, without trailing slash.
	PublicBaseURL string
}

// QRSelection picks the vehicles to render. Range bounds compare transit
// numbers as strings and are inclusive.
type QRSelection struct {
	Mode         string
	VehicleID    string
	StartTransit string
	EndTransit   string
}

// QRFile is a rendered download.
type QRFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// SurveyURL is the link encoded for a vehicle.
func (s *QRService) SurveyURL(tenantSlug, transit string) string {
	q := url.Values{"transit_number": {transit}}
	return fmt.Sprintf("%s/t/%s/survey?%s", strings.TrimRight(s.PublicBaseURL, "/"), url.PathEscape(tenantSlug), q.Encode())
}

// Generate renders the selection: one vehicle yields a PNG, several a ZIP.
// An empty selection yields ErrNoVehicles.
func (s *QRService) Generate(ctx context.Context, tenant *domain.Tenant, sel QRSelection) (*QRFile, error) {
	vehicles, err := s.selectVehicles(ctx, tenant.ID, sel)
	if err != nil {
		return nil, err
	}
	switch len(vehicles) {
	case 0:
		return nil, ErrNoVehicles
	case 1:
		png, err := s.render(tenant.Slug, vehicles[0].TransitNumber)
		if err != nil {
			return nil, err
		}
		return &QRFile{
			Name:        "QR_" + safeFilename(vehicles[0].TransitNumber) + ".png",
			ContentType: "image/png",
			Data:        png,
		}, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]bool, len(vehicles))
	for _, v := range vehicles {
		png, err := s.render(tenant.Slug, v.TransitNumber)
		if err != nil {
			return nil, err
		}
		name := "QR_" + safeFilename(v.TransitNumber)
		if v.Route != nil {
			name += "_Route_" + safeFilename(v.Route.Name)
		}
		w, err := zw.Create(uniqueEntry(used, name) + ".png")
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(png); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return &QRFile{
		Name:        "QR_Codes_" + safeFilename(tenant.Slug) + ".zip",
		ContentType: "application/zip",
		Data:        buf.Bytes(),
	}, nil
}

func (s *QRService) selectVehicles(ctx context.Context, tenantID string, sel QRSelection) ([]domain.Vehicle, error) {
	switch strings.ToLower(strings.TrimSpace(sel.Mode)) {
	case QRAll, "":
		return repo.ListVehicles(ctx, s.DB, tenantID)
	case QRSingle:
		if strings.TrimSpace(sel.VehicleID) == "" {
			return nil, invalid("vehicle_id is required for a single selection")
		}
		v, err := repo.GetVehicle(ctx, s.DB, tenantID, strings.TrimSpace(sel.VehicleID))
		if err != nil {
			if isNotFound(err) {
				return nil, ErrVehicleNotFound
			}
			return nil, err
		}
		return []domain.Vehicle{*v}, nil
	case QRRange:
		start, end := strings.TrimSpace(sel.StartTransit), strings.TrimSpace(sel.EndTransit)
		if start == "" || end == "" {
			return nil, invalid("start_transit and end_transit are required for a range selection")
		}
		if start > end {
			return nil, invalid("start_transit must not sort after end_transit")
		}
		return repo.ListVehiclesInRange(ctx, s.DB, tenantID, start, end)
	default:
		return nil, invalid("mode must be one of all, single, range")
	}
}

func (s *QRService) render(tenantSlug, transit string) ([]byte, error) {
	png, err := qrcode.Encode(s.SurveyURL(tenantSlug, transit), qrcode.High, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr for %s: %w", transit, err)
	}
	return png, nil
}

// uniqueEntry returns base, or base_2, base_3... when safeFilename folded two
// transit numbers (such as "A/1" and "A_1") onto the same name.
func uniqueEntry(used map[string]bool, base string) string {
	name := base
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	used[name] = true
	return name
}

var unsafeFilenameRE = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// safeFilename replaces every character outside [A-Za-z0-9._-] with '_'.
func safeFilename(s string) string {
	return unsafeFilenameRE.ReplaceAllString(s, "_")
}
