package models

// Counsellor is the subset of a counsellor profile the booking engine reads. Profile
// fields are owned by counsellor management; the engine only appends to AppointmentIDs.
type Counsellor struct {
	ID              string   `bson:"id" json:"userName" firestore:"userName"`
	FirstName       string   `bson:"firstName" json:"firstName" firestore:"firstName"`
	LastName        string   `bson:"lastName" json:"lastName" firestore:"lastName"`
	WorkingDays     []string `bson:"workingDays" json:"workingDays" firestore:"workingDays"`
	OfficeStartTime string   `bson:"officeStartTime" json:"officeStartTime" firestore:"officeStartTime"`
	OfficeEndTime   string   `bson:"officeEndTime" json:"officeEndTime" firestore:"officeEndTime"`
	AppointmentIDs  []string `bson:"appointmentIds" json:"appointmentIds" firestore:"appointmentIds"`
}
