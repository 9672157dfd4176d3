package extract

// CSS selectors for the listing page markup.
const (
	ListingSelector     = "div.exp-list-item-wrapper.exp-snippet"
	HeaderLinkSelector  = "a.exp-header[href]"
	TitleSelector       = "span.title"
	TaglineSelector     = "div.tagline"
	CategorySelector    = "div.type"
	PriceSelector       = "span.price-current"
	ReviewsSelector     = "a.reviews"
	RatingSelector      = "span.rating-value"
	DurationSelector    = "div.duration"
	MovementSelector    = "div.movement"
	ImageSelector       = "img.exp-pic"
	LazyImageAttr       = "data-src"
	MaxListings         = 15
	MissingPriceText    = "0 руб."
	missingDurationText = "0"
)
