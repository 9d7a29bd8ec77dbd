// Package geodesy computes distances on the WGS-84 ellipsoid.
package geodesy

import (
	"math"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// WGS-84 ellipsoid parameters.
const (
	semiMajorAxisM = 6378137.0
	flattening     = 1 / 298.257223563
	semiMinorAxisM = (1 - flattening) * semiMajorAxisM

	// meanRadiusKm is used only when the ellipsoidal solution fails to
	// converge (nearly antipodal points).
	meanRadiusKm = 6371.0088

	maxIterations = 200
	convergence   = 1e-12
)

// Distance returns the ellipsoidal great-circle distance in kilometres between
// two points using Vincenty's inverse formula. It fails with
// domain.ErrInvalidCoordinate when either point is out of range.
//
// Vincenty does not converge for some nearly antipodal pairs. Those fall back
// to the haversine distance on a sphere of mean Earth radius, which differs
// from the ellipsoidal value by at most about 0.5%.
func Distance(p1, p2 domain.GeoPoint) (float64, error) {
	if err := p1.Validate(); err != nil {
		return 0, err
	}
	if err := p2.Validate(); err != nil {
		return 0, err
	}
	if p1 == p2 {
		return 0, nil
	}

	km, ok := vincenty(p1, p2)
	if !ok {
		return haversine(p1, p2), nil
	}
	return km, nil
}

func vincenty(p1, p2 domain.GeoPoint) (float64, bool) {
	l := toRad(p2.Lon - p1.Lon)
	u1 := math.Atan((1 - flattening) * math.Tan(toRad(p1.Lat)))
	u2 := math.Atan((1 - flattening) * math.Tan(toRad(p2.Lat)))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cos2Alpha, cos2SigmaM float64
	converged := false

	for range maxIterations {
		sinLambda, cosLambda := math.Sincos(lambda)
		a := cosU2 * sinLambda
		b := cosU1*sinU2 - sinU1*cosU2*cosLambda
		sinSigma = math.Sqrt(a*a + b*b)
		if sinSigma == 0 {
			return 0, true
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cos2Alpha = 1 - sinAlpha*sinAlpha
		// Both points on the equator.
		cos2SigmaM = 0
		if cos2Alpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cos2Alpha
		}
		c := flattening / 16 * cos2Alpha * (4 + flattening*(4-3*cos2Alpha))
		prev := lambda
		lambda = l + (1-c)*flattening*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < convergence {
			converged = true
			break
		}
	}
	if !converged {
		return 0, false
	}

	uSq := cos2Alpha * (semiMajorAxisM*semiMajorAxisM - semiMinorAxisM*semiMinorAxisM) / (semiMinorAxisM * semiMinorAxisM)
	a := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	b := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := b * sinSigma * (cos2SigmaM + b/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		b/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return semiMinorAxisM * a * (sigma - deltaSigma) / 1000, true
}

func haversine(p1, p2 domain.GeoPoint) float64 {
	dLat := toRad(p2.Lat - p1.Lat)
	dLon := toRad(p2.Lon - p1.Lon)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(p1.Lat))*math.Cos(toRad(p2.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return meanRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
