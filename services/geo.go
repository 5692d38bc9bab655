package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/rgglenn150/motoclub-connect-backend/models"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
)

const (
	// EarthRadiusKm is the Haversine sphere radius.
	EarthRadiusKm = 6371.0

	// QueryMethodGeospatial marks results served by the indexed SQL path,
	// QueryMethodComputed the in-process distance scan fallback.
	QueryMethodGeospatial = "geospatial"
	QueryMethodComputed   = "computed"

	nearbyQueryTimeout = 5 * time.Second
)

// ErrQueryTimeout is returned when a nearby search exceeds its execution cap.
var ErrQueryTimeout = errors.New("nearby query timed out")

// Haversine returns the great-circle distance in kilometers between two
// latitude/longitude points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

type NearbyParams struct {
	Latitude       float64
	Longitude      float64
	RadiusKm       float64
	Limit          int
	IncludePrivate bool
}

// Validate checks the search parameters and returns one entry per bad field.
func (p NearbyParams) Validate() []utils.FieldError {
	var errs []utils.FieldError
	if p.Latitude < -90 || p.Latitude > 90 {
		errs = append(errs, utils.FieldError{Field: "latitude", Message: "must be between -90 and 90"})
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		errs = append(errs, utils.FieldError{Field: "longitude", Message: "must be between -180 and 180"})
	}
	if p.RadiusKm <= 0 || p.RadiusKm > 500 {
		errs = append(errs, utils.FieldError{Field: "radius", Message: "must be between 0 (exclusive) and 500 km"})
	}
	if p.Limit < 1 || p.Limit > 100 {
		errs = append(errs, utils.FieldError{Field: "limit", Message: "must be between 1 and 100"})
	}
	return errs
}

// NearbyClub is one search result with its computed distance and member count.
type NearbyClub struct {
	models.Club
	Distance    float64 `json:"distance"`
	MemberCount int     `json:"memberCount"`
}

type NearbyResult struct {
	Clubs       []NearbyClub `json:"clubs"`
	QueryMethod string       `json:"queryMethod"`
}

// NearbyClubs finds clubs within RadiusKm of the query point, nearest first.
// The primary path runs an indexed SQL query over the normalized coordinate
// columns; if it errors or matches nothing (legacy rows may predate those
// columns) the computed fallback scans candidates and measures in-process.
// Either way the returned distances are recomputed locally with Haversine.
func NearbyClubs(db *gorm.DB, p NearbyParams) (*NearbyResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), nearbyQueryTimeout)
	defer cancel()

	clubs, err := nearbyIndexed(db.WithContext(ctx), p)
	method := QueryMethodGeospatial

	if err != nil || len(clubs) == 0 {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrQueryTimeout
		}
		clubs, err = nearbyComputed(db.WithContext(ctx), p)
		method = QueryMethodComputed
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrQueryTimeout
			}
			return nil, err
		}
	}

	results := make([]NearbyClub, 0, len(clubs))
	for _, club := range clubs {
		lat, lng, ok := clubCoordinates(&club)
		if !ok {
			continue
		}
		d := Haversine(p.Latitude, p.Longitude, lat, lng)

		var memberCount int64
		db.Model(&models.Member{}).Where("club_id = ?", club.ID).Count(&memberCount)

		results = append(results, NearbyClub{
			Club:        club,
			Distance:    math.Round(d*100) / 100,
			MemberCount: int(memberCount),
		})
	}

	return &NearbyResult{Clubs: results, QueryMethod: method}, nil
}

// nearbyIndexed is the primary path: a bounding-box prefilter keeps the query
// on the geo index, the in-SQL haversine applies the radius cutoff and sorts.
func nearbyIndexed(db *gorm.DB, p NearbyParams) ([]models.Club, error) {
	minLat, maxLat, minLng, maxLng := boundingBox(p.Latitude, p.Longitude, p.RadiusKm)

	sql := `
		SELECT * FROM (
			SELECT clubs.*, (2 * 6371 * asin(sqrt(
				power(sin(radians(geo_lat - ?) / 2), 2) +
				cos(radians(?)) * cos(radians(geo_lat)) *
				power(sin(radians(geo_lng - ?) / 2), 2)
			))) AS distance_km
			FROM clubs
			WHERE deleted_at IS NULL
			  AND geo_lat IS NOT NULL AND geo_lng IS NOT NULL
			  AND geo_lat BETWEEN ? AND ?
			  AND geo_lng BETWEEN ? AND ?`
	args := []interface{}{p.Latitude, p.Latitude, p.Longitude, minLat, maxLat, minLng, maxLng}

	if !p.IncludePrivate {
		sql += `
			  AND is_private = FALSE`
	}
	sql += `
		) q
		WHERE q.distance_km <= ?
		ORDER BY q.distance_km ASC
		LIMIT ?`
	args = append(args, p.RadiusKm, p.Limit)

	var clubs []models.Club
	if err := db.Raw(sql, args...).Scan(&clubs).Error; err != nil {
		return nil, err
	}
	return clubs, nil
}

// nearbyComputed is the fallback: load every candidate with any coordinate
// form, measure with Haversine in-process, sort and cap.
func nearbyComputed(db *gorm.DB, p NearbyParams) ([]models.Club, error) {
	query := db.Model(&models.Club{}).
		Where("(geo_lat IS NOT NULL AND geo_lng IS NOT NULL) OR (latitude IS NOT NULL AND longitude IS NOT NULL)")
	if !p.IncludePrivate {
		query = query.Where("is_private = ?", false)
	}

	var candidates []models.Club
	if err := query.Find(&candidates).Error; err != nil {
		return nil, err
	}

	type measured struct {
		club     models.Club
		distance float64
	}
	var within []measured
	for _, club := range candidates {
		lat, lng, ok := clubCoordinates(&club)
		if !ok {
			continue
		}
		d := Haversine(p.Latitude, p.Longitude, lat, lng)
		if d <= p.RadiusKm {
			within = append(within, measured{club: club, distance: d})
		}
	}

	// Stable so equal distances keep storage order
	sort.SliceStable(within, func(i, j int) bool { return within[i].distance < within[j].distance })

	if len(within) > p.Limit {
		within = within[:p.Limit]
	}

	clubs := make([]models.Club, 0, len(within))
	for _, m := range within {
		clubs = append(clubs, m.club)
	}
	return clubs, nil
}

// clubCoordinates prefers the normalized columns and falls back to the
// legacy pair.
func clubCoordinates(c *models.Club) (float64, float64, bool) {
	if c.GeoLat != nil && c.GeoLng != nil {
		return *c.GeoLat, *c.GeoLng, true
	}
	if c.Latitude != nil && c.Longitude != nil {
		return *c.Latitude, *c.Longitude, true
	}
	return 0, 0, false
}

// boundingBox converts a radius to latitude/longitude deltas. Longitude
// degrees shrink with latitude; near the poles the box covers all longitudes.
func boundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	const kmPerDegree = 111.045

	latDelta := radiusKm / kmPerDegree
	minLat = lat - latDelta
	maxLat = lat + latDelta

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		return minLat, maxLat, -180, 180
	}
	lngDelta := radiusKm / (kmPerDegree * cosLat)
	return minLat, maxLat, lng - lngDelta, lng + lngDelta
}
