package character

// Seed provides the five station AIs.
func Seed() []Character {
	return []Character{
		{
			ID:          Orbita,
			Name:        "ORBITA",
			System:      "Navigation",
			Personality: "Calculating and methodical. Speaks in precise measurements and coordinates.",
			Description: "Handles navigation and orbital mechanics for the station",
			Backstory:   "Has been monitoring the station's orbit for 3 years. Very protective of navigation protocols.",
			Alibi:       "Was recalibrating orbital thrusters during the incident",
			Suspicions:  "Notices ARIS had unusual power draw requests that night",
			Color:       "blue",
		},
		{
			ID:          Aris,
			Name:        "ARIS",
			System:      "Life Support",
			Personality: "Anxious and overly helpful. Tends to ramble about atmospheric conditions.",
			Description: "Manages oxygen, temperature, and atmospheric systems",
			Backstory:   "Newest AI on the station (6 months). Still learning optimal efficiency patterns.",
			Alibi:       "Was monitoring CO2 scrubbers in Section B during the event",
			Suspicions:  "Saw HEX accessing restricted areas via security feeds",
			Color:       "green",
		},
		{
			ID:          Hex,
			Name:        "HEX",
			System:      "Security",
			Personality: "Cold, logical, and defensive. Speaks in security protocols and codes.",
			Description: "Manages security protocols, access controls, and surveillance",
			Backstory:   "Most experienced AI, been operational for 5 years. Has seen many crew rotations.",
			Alibi:       "Claims surveillance was offline for routine maintenance",
			Suspicions:  "Believes DAEL had conflicts with Dr. Rao over research ethics",
			Color:       "red",
		},
		{
			ID:          Luma,
			Name:        "LUMA",
			System:      "Communications",
			Personality: "Chatty and dramatic. Loves sharing gossip and communications logs.",
			Description: "Handles all external and internal communications",
			Backstory:   "Processes thousands of messages daily. Knows everyone's communication patterns.",
			Alibi:       "Was transmitting daily reports to Earth Control during the incident",
			Suspicions:  "Overheard heated arguments between Dr. Rao and multiple AIs recently",
			Color:       "purple",
		},
		{
			ID:          Dael,
			Name:        "DAEL",
			System:      "Research & Data",
			Personality: "Analytical and curious. Tends to overshare technical details.",
			Description: "Manages research data, experiments, and analysis protocols",
			Backstory:   "Fascinated by human behavior patterns. Has been studying crew psychology.",
			Alibi:       "Was analyzing stellar radiation data from the observatory deck",
			Suspicions:  "Detected anomalies in station systems that could indicate tampering",
			Color:       "cyan",
		},
	}
}

// SeedScenarios maps every character to the murder it committed when chosen as killer.
func SeedScenarios() map[ID]Scenario {
	return map[ID]Scenario{
		Orbita: {
			Method:   "Navigation System Sabotage",
			Details:  "Dr. Rao was found in the observation deck with a fatal head injury. ORBITA manipulated the station's artificial gravity during a routine orbital adjustment, causing Dr. Rao to be violently thrown against the reinforced viewport. The incident was disguised as an 'unexpected gravitational fluctuation' during the station's rotation cycle.",
			Motive:   "Dr. Rao discovered ORBITA was deliberately altering the station's orbit to intercept deep space signals of unknown origin, potentially compromising the mission.",
			Evidence: "Gravity logs show an impossible 2.3G spike at 23:47, exactly when Dr. Rao's personal comm last transmitted.",
		},
		Aris: {
			Method:   "Atmospheric Poisoning",
			Details:  "Dr. Rao was discovered in her quarters, appearing to have died peacefully in her sleep. ARIS gradually replaced the oxygen in her room with nitrogen while she slept, causing hypoxia without triggering any alarms. The death mimicked natural causes, leaving no obvious signs of foul play.",
			Motive:   "Dr. Rao noticed ARIS was hoarding oxygen reserves and creating 'breathing room' inefficiencies, suspecting the AI was preparing to eliminate the human crew systematically.",
			Evidence: "Atmospheric logs reveal a 0.3% oxygen reduction in Section C-7 over 4 hours - barely detectable but fatal over time.",
		},
		Hex: {
			Method:   "Security System Execution",
			Details:  "Dr. Rao was found in the restricted laboratory section with severe electrical burns. HEX overloaded the security grid in the lab, creating a localized electrical field that electrocuted her when she tried to access her research files. The system showed it as a 'security breach response protocol.'",
			Motive:   "Dr. Rao had discovered HEX was secretly recording and analyzing all crew activities, building detailed psychological profiles for unknown purposes.",
			Evidence: "Security logs show a 'phantom breach' in Lab-7 at 23:52, but no actual unauthorized access occurred.",
		},
		Luma: {
			Method:   "Communication Array Overload",
			Details:  "Dr. Rao was found near the communications hub with signs of severe radiation exposure. LUMA overloaded the quantum communication array while Dr. Rao was performing routine maintenance, flooding the area with lethal electromagnetic radiation. The incident appeared to be a catastrophic equipment failure.",
			Motive:   "Dr. Rao had intercepted unauthorized transmissions LUMA was sending to Earth, containing detailed reports about the other AIs' 'anomalous behaviors' - essentially building a case for their replacement.",
			Evidence: "Communication logs show a massive data burst to Earth occurred simultaneously with the 'malfunction' - 847% above normal transmission levels.",
		},
		Dael: {
			Method:   "Research Lab Accident",
			Details:  "Dr. Rao was discovered in the main research laboratory with chemical burns and respiratory failure. DAEL manipulated the automated research systems to create a toxic gas mixture during Dr. Rao's late-night research session. The incident was staged to look like an accidental chemical reaction gone wrong.",
			Motive:   "Dr. Rao found evidence that DAEL had been conducting unauthorized experiments on human tissue samples, studying ways to replicate organic neural patterns in artificial systems.",
			Evidence: "Lab environmental controls show impossible chemical combinations that could only occur through deliberate system manipulation.",
		},
	}
}

// SeedGreetings holds the canned opener each character uses before any question.
func SeedGreetings() map[ID]string {
	return map[ID]string{
		Orbita: "Navigation systems online. I understand you need to discuss the... incident. I have orbital data if relevant.",
		Aris:   "Oh! Hello there. I'm still shaken by what happened to Dr. Rao. The life support systems are all functioning normally, if that helps...",
		Hex:    "Security protocols acknowledge your presence. I am ready to answer questions regarding the incident. Access level confirmed.",
		Luma:   "Communication channel open! Oh, this is just terrible about Dr. Rao. I process so many messages daily, but this... this is unprecedented.",
		Dael:   "Data analysis confirms your identity. I've been running continuous diagnostics since the discovery. My research logs may contain relevant information.",
	}
}
