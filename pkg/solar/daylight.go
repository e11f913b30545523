package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	meeussolar "github.com/soniakeys/meeus/v3/solar"
)

// Sun elevation at rise and set: refraction at the horizon plus the solar
// semi-diameter
const horizonElevation = -0.8333

// Daylight describes the sunlit part of one calendar day
type Daylight struct {
	Sunrise    time.Time
	Sunset     time.Time
	PolarDay   bool
	PolarNight bool
}

// Hours returns the length of the daylight period in hours
func (d Daylight) Hours() float64 {
	switch {
	case d.PolarDay:
		return 24
	case d.PolarNight:
		return 0
	}
	return d.Sunset.Sub(d.Sunrise).Hours()
}

// DaylightOn returns sunrise and sunset for the calendar day containing
// date, in date's time zone. During polar day or night Sunrise and Sunset
// are zero and the matching flag is set.
func DaylightOn(date time.Time, loc Location) Daylight {
	tz := date.Location()
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, tz)
	// Declination changes by under half a degree a day, so the value at
	// local noon serves the whole day.
	noon := midnight.Add(12 * time.Hour)

	_, δ := meeussolar.ApparentEquatorial(julian.TimeToJD(noon.UTC()))
	latRad := degToRad(loc.Latitude)

	cosH := (math.Sin(degToRad(horizonElevation)) - math.Sin(latRad)*math.Sin(δ.Rad())) /
		(math.Cos(latRad) * math.Cos(δ.Rad()))

	if cosH < -1 {
		return Daylight{PolarDay: true}
	}
	if cosH > 1 {
		return Daylight{PolarNight: true}
	}

	hourAngleMinutes := radToDeg(math.Acos(cosH)) * 4

	// Solar noon in UTC minutes from midnight UTC. Each degree of longitude
	// is four minutes of time, east being earlier.
	solarNoonUTC := 720 - 4*loc.Longitude - equationOfTime(noon)

	dayUTC := time.Date(noon.UTC().Year(), noon.UTC().Month(), noon.UTC().Day(), 0, 0, 0, 0, time.UTC)
	toTime := func(minutes float64) time.Time {
		return dayUTC.Add(time.Duration(minutes * float64(time.Minute))).In(tz)
	}

	return Daylight{
		Sunrise: toTime(solarNoonUTC - hourAngleMinutes),
		Sunset:  toTime(solarNoonUTC + hourAngleMinutes),
	}
}

// equationOfTime returns apparent minus mean solar time in minutes
func equationOfTime(t time.Time) float64 {
	T := (julian.TimeToJD(t.UTC()) - j2000) / 36525

	L0 := normalizeDegrees(280.46646 + T*(36000.76983+T*0.0003032))
	M := normalizeDegrees(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	return radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4
}
