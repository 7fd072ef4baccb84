package common

const (
	// CollectionOAM is the identifier of the OpenAerialMap collection
	CollectionOAM = "openaerialmap"
	// CollectionMaxar is the identifier of the Maxar Open Data collection
	CollectionMaxar = "maxar-opendata"

	// ProviderOAM and ProviderMaxar are the provider names accepted on the command line
	ProviderOAM   = "oam"
	ProviderMaxar = "maxar"
)
