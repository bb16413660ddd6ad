package sqlassets

import _ "embed"

//go:embed schema/tenants.sql
var TenantsSQL string

//go:embed schema/resources.sql
var ResourcesSQL string

//go:embed schema/bookings.sql
var BookingsSQL string

//go:embed schema/booking_events.sql
var BookingEventsSQL string
