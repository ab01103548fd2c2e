package telemetry

// Field is a canonical telemetry column name.
type Field string

const (
	Speed           Field = "speed"
	RPM             Field = "rpm"
	Acceleration    Field = "acceleration"
	Brake           Field = "brake"
	Throttle        Field = "throttle"
	EngineLoad      Field = "engine_load"
	CoolantTemp     Field = "coolant_temp"
	Battery         Field = "battery"
	FuelLevel       Field = "fuel_level"
	TripDistance    Field = "trip_distance"
	TripTime        Field = "trip_time"
	Latitude        Field = "latitude"
	Longitude       Field = "longitude"
	DriverRating    Field = "driver_rating"
	UserID          Field = "user_id"
	TripID          Field = "trip_id"
	Timestamp       Field = "timestamp"
	SteeringAngle   Field = "steering_angle"
	AngularVelocity Field = "angular_velocity"
	GearPosition    Field = "gear_position"
	TirePressure    Field = "tire_pressure"
	BrakePressure   Field = "brake_pressure"
	VehicleNumber   Field = "vehicle_number"
)

// FieldAliases lists the source column spellings recognised for one field,
// in priority order.
type FieldAliases struct {
	Field   Field
	Aliases []string
}

// aliasTable is processed top to bottom; within a field the first alias
// present in a file wins. "TIME" is deliberately absent from trip_time so a
// bare time column resolves to timestamp.
var aliasTable = []FieldAliases{
	{Speed, []string{
		"Speed (km/h)", "Vehicle Speed Sensor [km/h]", "VEHICLE_SPEED", "VEHICLE_SPEED ()", "SPEED",
		"gps_speed", "Speed (GPS)(km/h)", "Speed (OBD)(km/h)",
		"Average trip speed(whilst moving only)(km/h)", "Average trip speed(whilst stopped or moving)(km/h)",
		"velocity", "car_speed",
	}},
	{RPM, []string{
		"Engine RPM [RPM]", "ENGINE_RPM", "ENGINE_RPM ()", "ENGINE RPM(rpm)", "rpm", "Motor speed (rpm)",
		"engine_rpm", "motor_rpm", "revolutions_per_minute",
	}},
	{Acceleration, []string{
		"Acceleration (m/s²)", "Acceleration Sensor(Total)(g)", "accData", "acceleration", "accel",
		"longitudinal_acceleration", "acc_x", "acc_y", "acc_z",
	}},
	{Brake, []string{
		"Braking intensity (%)", "Braking intensity ()", "Regen braking level (%)", "Regen braking state",
		"brake_position", "brake_pedal", "braking_force",
	}},
	{Throttle, []string{
		"Throttle position (%)", "THROTTLE", "THROTTLE ()", "Absolute Throttle Position [%]",
		"Throttle Position(Manifold)(%)", "Absolute Throttle Position B(%)", "tPos", "THROTTLE_POS",
		"throttle_position", "accelerator_position", "gas_pedal",
	}},
	{EngineLoad, []string{
		"ENGINE_LOAD", "ENGINE_LOAD ()", "Engine Load(Absolute)(%)", "Engine Load(%)", "eLoad",
		"calculated_engine_load", "engine_load_percent",
	}},
	{CoolantTemp, []string{
		"COOLANT_TEMPERATURE", "COOLANT_TEMPERATURE ()", "Engine Coolant Temperature [°C]", "ENGINE_COOLANT_TEMP",
		"Engine Coolant Temperature(°C)", "cTemp", "coolant_temperature", "engine_temp",
	}},
	{Battery, []string{
		"Battery SoC (%)", "Battery current (A)", "battery", "battery_voltage", "soc", "state_of_charge",
	}},
	{FuelLevel, []string{
		"FUEL_LEVEL", "FUEL_LEVEL ()", "FUEL_TANK", "Fuel Remaining (Calculated from vehicle profile)(%)",
		"fuel_tank_level", "fuel_percentage",
	}},
	{TripDistance, []string{
		"Distance traveled (km)", "Trip distance (km)", "Trip Distance(km)", "Trip Distance",
		"distance", "odometer", "total_distance",
	}},
	{TripTime, []string{
		// The "(s)" spelling is in seconds and is rescaled by ConvertUnits.
		"Trip time (min)", "Trip Time(Since journey start)(s)", "duration", "elapsed_time",
	}},
	{Latitude, []string{
		"LATITUDE", "LATITUDE ()", "GPS Latitude(°)", "Latitude", "lat", "gps_lat",
	}},
	{Longitude, []string{
		"LONGITUDE", "LONGITUDE ()", "GPS Longitude(°)", "Longitude", "lon", "lng", "gps_lon",
	}},
	{DriverRating, []string{
		"Driver Behavior rating", "driving_score", "safety_score", "performance_rating",
	}},
	{UserID, []string{
		"User ID", "driver_id", "UserId", "DriverId", "User", "Driver",
	}},
	{TripID, []string{
		"Trip ID", "TripId", "Trip", "journey_id",
	}},
	{Timestamp, []string{
		"Timestamp", "Time", "DateTime", "Date Time", "recorded_at",
	}},
	{SteeringAngle, []string{
		"Steering Angle", "wheel_angle", "steering_position",
	}},
	{AngularVelocity, []string{
		"Angular Velocity", "yaw_rate", "rotation_rate",
	}},
	{GearPosition, []string{
		"Gear Position", "gear", "transmission_gear",
	}},
	{TirePressure, []string{
		"Tire Pressure", "wheel_pressure", "tyre_pressure",
	}},
	{BrakePressure, []string{
		"Brake Pressure", "braking_pressure", "brake_force",
	}},
	{VehicleNumber, []string{
		"Vehicle Number", "VehicleNumber", "License Plate", "LicensePlate",
		"Registration Number", "RegNumber", "reg_number", "Plate Number", "PlateNumber",
		"Car Number", "CarNumber",
	}},
}

// Aliases returns a copy of the alias table in resolution order.
func Aliases() []FieldAliases {
	out := make([]FieldAliases, len(aliasTable))
	for i, fa := range aliasTable {
		out[i] = FieldAliases{Field: fa.Field, Aliases: append([]string(nil), fa.Aliases...)}
	}
	return out
}

// Fields returns every canonical field in resolution order.
func Fields() []Field {
	out := make([]Field, len(aliasTable))
	for i, fa := range aliasTable {
		out[i] = fa.Field
	}
	return out
}
