package product

// synonyms drives one-level keyword expansion for problem-description search.
var synonyms = map[string][]string{
	"earbuds":      {"earphones", "tws", "headphones", "audio", "bluetooth"},
	"earphones":    {"earbuds", "tws"},
	"headphones":   {"earbuds", "audio"},
	"dirty":        {"clean", "wash", "dust", "stain", "laundry"},
	"clean":        {"wash", "wipe", "sanitize", "laundry", "clothes"},
	"clothes":      {"washing machine", "laundry", "dryer"},
	"washing":      {"washing machine", "laundry"},
	"laundry":      {"washing machine", "dryer", "clothes"},
	"refrigerator": {"fridge", "cooler", "freezer"},
	"fridge":       {"refrigerator", "cooler"},
	"mixer":        {"blender", "grinder", "mixie"},
	"phone":        {"mobile", "smartphone", "android"},
	"mobile":       {"phone", "device"},
	"mosquito":     {"insect", "repellent", "pest"},
	"insect":       {"mosquito", "bug"},
	"shoes":        {"footwear", "sneakers"},
	"shirt":        {"tshirt", "clothes", "top"},
	"trimmer":      {"shaver", "grooming"},
}
