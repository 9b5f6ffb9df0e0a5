package models

// User is the subset of a user profile the booking engine reads.
type User struct {
	ID             string   `bson:"id" json:"userName" firestore:"userName"`
	FirstName      string   `bson:"firstName" json:"firstName" firestore:"firstName"`
	LastName       string   `bson:"lastName" json:"lastName" firestore:"lastName"`
	AppointmentIDs []string `bson:"appointmentIds" json:"appointmentIds" firestore:"appointmentIds"`
}
