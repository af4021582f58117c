package venues

import "github.com/venuewatch/venuewatch/internal/models"

var builtin = []models.Venue{
	{ID: "vlc-loco-club", Name: "Loco Club", City: "Valencia", Category: "music", Website: "https://www.lococlub.org", ChannelA: "lococlubvalencia", ChannelB: "lococlub.valencia"},
	{ID: "vlc-16-toneladas", Name: "16 Toneladas", City: "Valencia", Category: "music", Website: "https://www.16toneladas.com", ChannelA: "16toneladas"},
	{ID: "vlc-teatro-olympia", Name: "Teatro Olympia", City: "Valencia", Category: "theatre", Website: "https://www.teatro-olympia.com", ChannelB: "teatroolympiavalencia"},
	{ID: "vlc-mercado-colon", Name: "Mercado de Colón", City: "Valencia", Category: "food", Website: "https://www.mercadocolon.es", ChannelA: "mercadocolon"},
	{ID: "vlc-ivam", Name: "IVAM", City: "Valencia", Category: "art", Website: "https://www.ivam.es", ChannelA: "ivam_online", ChannelB: "ivamonline"},
	{ID: "mad-sala-el-sol", Name: "Sala El Sol", City: "Madrid", Category: "music", Website: "https://www.salaelsol.com", ChannelA: "salaelsol", ChannelB: "salaelsolmadrid"},
	{ID: "mad-teatro-real", Name: "Teatro Real", City: "Madrid", Category: "theatre", Website: "https://www.teatroreal.es", ChannelA: "teatroreal"},
	{ID: "mad-la-chocita", Name: "La Chocita del Loro", City: "Madrid", Category: "comedy", Website: "https://www.lachocitadelloro.com", ChannelB: "lachocitadelloro"},
	{ID: "mad-medias-puri", Name: "Medias Puri", City: "Madrid", Category: "nightlife", ChannelA: "mediaspuri", ChannelB: "mediaspurimadrid"},
	{ID: "mad-matadero", Name: "Matadero Madrid", City: "Madrid", Category: "art", Website: "https://www.mataderomadrid.org", ChannelA: "mataderomadrid"},
}

// Default returns the built-in registry covering Valencia and Madrid.
func Default() *Registry {
	r, err := New(builtin)
	if err != nil {
		panic("venues: invalid built-in registry: " + err.Error())
	}
	return r
}
