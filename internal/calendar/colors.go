package calendar

import "github.com/medilink/clinic-api/internal/model"

// DefaultColorID is used for categories missing from the palette.
const DefaultColorID = "1"

// colorIDs maps categories onto the external calendar's fixed palette
// (7 peacock, 11 tomato, 10 basil, 5 banana). It is kept apart from
// model.CategoryColors; the two palettes are edited independently.
var colorIDs = map[model.AppointmentCategory]string{
	model.CategoryGeneralConsultation: "7",
	model.CategorySurgery:             "11",
	model.CategoryVaccination:         "10",
	model.CategoryExempted:            "5",
}

func ColorID(c model.AppointmentCategory) string {
	if id, ok := colorIDs[c]; ok {
		return id
	}
	return DefaultColorID
}
