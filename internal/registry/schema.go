package registry

func num(name, physical string) Column     { return Column{Name: name, Physical: physical, Type: TypeNumber} }
func str(name, physical string) Column     { return Column{Name: name, Physical: physical, Type: TypeString} }
func boolean(name, physical string) Column { return Column{Name: name, Physical: physical, Type: TypeBoolean} }
func date(name, physical string) Column    { return Column{Name: name, Physical: physical, Type: TypeDate} }

// DefaultTables returns the agronomic schema: farms, their cropping systems
// (sdc), plots, crop rotations, field interventions and per-campaign
// indicators. The physical layout is created by storage migrations.
func DefaultTables() []Table {
	return []Table{
		{
			Name:     "farms",
			Physical: "farms",
			Key:      "id",
			Columns: []Column{
				num("id", "id"),
				str("name", "name"),
				str("region", "region"),
				str("department", "department"),
				num("utilizedAreaHa", "utilized_area_ha"),
				boolean("organic", "organic"),
				boolean("livestock", "livestock"),
				num("workforce", "workforce"),
				date("createdOn", "created_on"),
			},
		},
		{
			Name:     "sdc",
			Physical: "cropping_systems",
			Key:      "id",
			Columns: []Column{
				num("id", "id"),
				num("farmId", "farm_id"),
				str("name", "name"),
				str("type", "type"),
				str("tillage", "tillage"),
				boolean("irrigated", "irrigated"),
			},
		},
		{
			Name:     "plots",
			Physical: "plots",
			Key:      "id",
			Columns: []Column{
				num("id", "id"),
				num("farmId", "farm_id"),
				num("sdcId", "sdc_id"),
				str("name", "name"),
				num("areaHa", "area_ha"),
				str("soilType", "soil_type"),
				boolean("drained", "drained"),
				num("organicMatterPct", "organic_matter_pct"),
			},
		},
		{
			Name:     "rotations",
			Physical: "rotations",
			Key:      "id",
			Columns: []Column{
				num("id", "id"),
				num("sdcId", "sdc_id"),
				num("position", "position"),
				str("crop", "crop"),
				str("cropFamily", "crop_family"),
				boolean("coverCrop", "cover_crop"),
				num("yieldTHa", "yield_t_ha"),
				num("year", "year"),
			},
		},
		{
			Name:     "interventions",
			Physical: "interventions",
			Key:      "id",
			Columns: []Column{
				num("id", "id"),
				num("plotId", "plot_id"),
				num("rotationId", "rotation_id"),
				num("campaign", "campaign"),
				date("date", "date"),
				str("category", "category"),
				str("product", "product"),
				num("doseHa", "dose_ha"),
				str("unit", "unit"),
				num("nitrogenKgHa", "nitrogen_kg_ha"),
				num("tfi", "tfi"),
				num("passes", "passes"),
				num("fuelLHa", "fuel_l_ha"),
				num("costEurHa", "cost_eur_ha"),
			},
		},
		{
			Name:     "indicators",
			Physical: "indicators",
			Key:      "id",
			Columns: []Column{
				num("id", "id"),
				num("sdcId", "sdc_id"),
				num("campaign", "campaign"),
				num("grossMarginEurHa", "gross_margin_eur_ha"),
				num("tfiTotal", "tfi_total"),
				num("nitrogenTotalKgHa", "nitrogen_total_kg_ha"),
				num("workHoursHa", "work_hours_ha"),
				num("ghgKgCo2eHa", "ghg_kg_co2e_ha"),
				num("yieldIndex", "yield_index"),
			},
		},
	}
}
