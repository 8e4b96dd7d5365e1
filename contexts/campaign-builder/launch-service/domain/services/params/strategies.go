package params

import "adpilot/contexts/campaign-builder/launch-service/domain/entities"

// DefaultStrategyName is what unknown or missing tags resolve to.
const DefaultStrategyName = "website_traffic"

func WebsiteTrafficStrategy() Strategy {
	return destinationStrategy{
		name:             DefaultStrategyName,
		tags:             []string{"website", "traffic", "outcome_traffic", "link_clicks"},
		objective:        "OUTCOME_TRAFFIC",
		destinationType:  "WEBSITE",
		optimizationGoal: "LINK_CLICKS",
		billingEvent:     "IMPRESSIONS",
		callToAction:     "LEARN_MORE",
	}
}

func WebsiteConversionsStrategy() Strategy {
	return destinationStrategy{
		name:             "website_conversions",
		tags:             []string{"conversions", "sales", "outcome_sales", "website_conversions"},
		objective:        "OUTCOME_SALES",
		destinationType:  "WEBSITE",
		optimizationGoal: "OFFSITE_CONVERSIONS",
		billingEvent:     "IMPRESSIONS",
		callToAction:     "SHOP_NOW",
		promotedObject: func(in entities.AdSetInput) Payload {
			return Payload{
				"pixel_id":          in.PixelID,
				"custom_event_type": firstNonBlank(in.CustomEvent, "PURCHASE"),
			}
		},
	}
}

func InstantFormLeadsStrategy() Strategy {
	return destinationStrategy{
		name:             "instant_form_leads",
		tags:             []string{"leads", "on_ad", "outcome_leads", "lead_generation"},
		objective:        "OUTCOME_LEADS",
		destinationType:  "ON_AD",
		optimizationGoal: "LEAD_GENERATION",
		billingEvent:     "IMPRESSIONS",
		callToAction:     "SIGN_UP",
		promotedObject: func(in entities.AdSetInput) Payload {
			return Payload{"page_id": in.PageID}
		},
		callToActionLink: func(creative entities.CreativeInput, adSet entities.AdSetInput) Payload {
			return Payload{
				"lead_gen_form_id": adSet.LeadFormID,
				"link":             creative.LinkURL,
			}
		},
	}
}

func AppInstallsStrategy() Strategy {
	return destinationStrategy{
		name:             "app_installs",
		tags:             []string{"app", "app_installs", "outcome_app_promotion"},
		objective:        "OUTCOME_APP_PROMOTION",
		destinationType:  "APP",
		optimizationGoal: "APP_INSTALLS",
		billingEvent:     "IMPRESSIONS",
		callToAction:     "INSTALL_MOBILE_APP",
		promotedObject: func(in entities.AdSetInput) Payload {
			return Payload{
				"application_id":   in.ApplicationID,
				"object_store_url": in.StoreURL,
			}
		},
		callToActionLink: func(creative entities.CreativeInput, adSet entities.AdSetInput) Payload {
			return Payload{
				"application": adSet.ApplicationID,
				"link":        firstNonBlank(creative.LinkURL, adSet.StoreURL),
			}
		},
	}
}

func MessengerStrategy() Strategy {
	return destinationStrategy{
		name:             "messenger_engagement",
		tags:             []string{"messenger", "messages", "outcome_engagement", "conversations"},
		objective:        "OUTCOME_ENGAGEMENT",
		destinationType:  "MESSENGER",
		optimizationGoal: "CONVERSATIONS",
		billingEvent:     "IMPRESSIONS",
		callToAction:     "MESSAGE_PAGE",
		promotedObject: func(in entities.AdSetInput) Payload {
			return Payload{"page_id": in.PageID}
		},
		callToActionLink: func(_ entities.CreativeInput, _ entities.AdSetInput) Payload {
			return Payload{"app_destination": "MESSENGER"}
		},
	}
}

func AwarenessStrategy() Strategy {
	return destinationStrategy{
		name:             "reach_awareness",
		tags:             []string{"awareness", "reach", "outcome_awareness"},
		objective:        "OUTCOME_AWARENESS",
		optimizationGoal: "REACH",
		billingEvent:     "IMPRESSIONS",
		callToAction:     "LEARN_MORE",
	}
}
